package app

import (
	"context"
	"strings"

	"theonebook/pkg/domain"
)

// ChapterInput is the editable part of a chapter.
type ChapterInput struct {
	Title string
	Order *int
}

func (in ChapterInput) validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		verr.add("title", "required")
	}
	if in.Order == nil {
		verr.add("order", "required")
	}
	return verr.orNil()
}

// ListChapters returns every chapter in book order with its page count.
func (a *App) ListChapters(ctx context.Context) ([]domain.Chapter, error) {
	chapters, err := a.store.ListChaptersOrdered(ctx)
	if err != nil {
		return nil, storeErr("list chapters", 0, err)
	}
	return chapters, nil
}

// GetChapter returns one chapter.
func (a *App) GetChapter(ctx context.Context, id int64) (domain.Chapter, error) {
	ch, found, err := a.store.GetChapter(ctx, id)
	if err != nil {
		return domain.Chapter{}, storeErr("get chapter", id, err)
	}
	if !found {
		return domain.Chapter{}, &NotFoundError{Entity: "chapter", ID: id}
	}
	return ch, nil
}

// CreateChapter adds a chapter.
func (a *App) CreateChapter(ctx context.Context, in ChapterInput) (domain.Chapter, error) {
	if err := in.validate(); err != nil {
		return domain.Chapter{}, err
	}
	ch, err := a.store.CreateChapter(ctx, domain.Chapter{Title: strings.TrimSpace(in.Title), Order: *in.Order})
	if err != nil {
		return domain.Chapter{}, storeErr("create chapter", 0, err)
	}
	return ch, nil
}

// UpdateChapter replaces a chapter's title and order.
func (a *App) UpdateChapter(ctx context.Context, id int64, in ChapterInput) (domain.Chapter, error) {
	if err := in.validate(); err != nil {
		return domain.Chapter{}, err
	}
	ch, found, err := a.store.UpdateChapter(ctx, domain.Chapter{ID: id, Title: strings.TrimSpace(in.Title), Order: *in.Order})
	if err != nil {
		return domain.Chapter{}, storeErr("update chapter", id, err)
	}
	if !found {
		return domain.Chapter{}, &NotFoundError{Entity: "chapter", ID: id}
	}
	return ch, nil
}

// DeleteChapter removes a chapter and all of its pages.
func (a *App) DeleteChapter(ctx context.Context, id int64) error {
	ok, err := a.store.DeleteChapter(ctx, id)
	if err != nil {
		return storeErr("delete chapter", id, err)
	}
	if !ok {
		return &NotFoundError{Entity: "chapter", ID: id}
	}
	return nil
}

// ListChapterPages returns the ordered page index of one chapter.
func (a *App) ListChapterPages(ctx context.Context, id int64) ([]domain.PageSummary, error) {
	if _, err := a.GetChapter(ctx, id); err != nil {
		return nil, err
	}
	pages, err := a.store.ListPagesOrdered(ctx, id)
	if err != nil {
		return nil, storeErr("list pages", id, err)
	}
	out := make([]domain.PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, domain.PageSummary{ID: p.ID, Title: p.Title, Order: p.Order})
	}
	return out, nil
}
