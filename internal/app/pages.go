package app

import (
	"context"
	"strings"

	"theonebook/internal/export"
	"theonebook/pkg/domain"
)

// PageInput is the editable part of a page.
type PageInput struct {
	Title       string
	Content     string
	Memo        string
	ImageURL    string
	SubImageURL string
	Order       *int
	ChapterID   *int64
}

func (in PageInput) validate() *ValidationError {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		verr.add("title", "required")
	}
	if in.Order == nil {
		verr.add("order", "required")
	}
	if in.ChapterID == nil || *in.ChapterID <= 0 {
		verr.add("chapterId", "required")
	}
	return verr
}

func (in PageInput) page() domain.Page {
	return domain.Page{
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Memo:        in.Memo,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		SubImageURL: strings.TrimSpace(in.SubImageURL),
		Order:       *in.Order,
		ChapterID:   *in.ChapterID,
	}
}

// checkTarget validates input and verifies the target chapter exists.
func (a *App) checkTarget(ctx context.Context, in PageInput) error {
	verr := in.validate()
	if len(verr.Fields) == 0 {
		_, found, err := a.store.GetChapter(ctx, *in.ChapterID)
		if err != nil {
			return storeErr("get chapter", *in.ChapterID, err)
		}
		if !found {
			verr.add("chapterId", "chapter does not exist")
		}
	}
	return verr.orNil()
}

// ListPagesNumbered returns every page in book order with its global page
// number, numbered exactly as the export numbers them.
func (a *App) ListPagesNumbered(ctx context.Context) ([]domain.NumberedPage, error) {
	chapters, err := export.Load(ctx, a.store)
	if err != nil {
		return nil, storeErr("list pages numbered", 0, err)
	}
	sections := export.Plan(chapters)
	out := make([]domain.NumberedPage, 0, len(sections))
	for _, s := range sections {
		out = append(out, domain.NumberedPage{
			Page:             s.Page,
			ChapterTitle:     s.Chapter.Title,
			GlobalPageNumber: s.Number,
		})
	}
	return out, nil
}

// GetPage returns one page.
func (a *App) GetPage(ctx context.Context, id int64) (domain.Page, error) {
	p, found, err := a.store.GetPage(ctx, id)
	if err != nil {
		return domain.Page{}, storeErr("get page", id, err)
	}
	if !found {
		return domain.Page{}, &NotFoundError{Entity: "page", ID: id}
	}
	return p, nil
}

// CreatePage adds a page owned by the caller. A page with the same title in
// the same chapter yields a *ConflictError naming the existing page.
func (a *App) CreatePage(ctx context.Context, id domain.Identity, in PageInput) (domain.Page, error) {
	if err := a.checkTarget(ctx, in); err != nil {
		return domain.Page{}, err
	}
	page := in.page()
	existing, found, err := a.store.FindPageByTitle(ctx, page.ChapterID, page.Title)
	if err != nil {
		return domain.Page{}, storeErr("find page by title", page.ChapterID, err)
	}
	if found {
		return domain.Page{}, &ConflictError{ExistingID: existing.ID, Title: page.Title}
	}
	page.UserID = id.UserID
	created, err := a.store.CreatePage(ctx, page)
	if err != nil {
		return domain.Page{}, storeErr("create page", 0, err)
	}
	return created, nil
}

// UpdatePage replaces a page's editable fields. Renaming onto the title of
// another page in the target chapter is a conflict.
func (a *App) UpdatePage(ctx context.Context, pageID int64, in PageInput) (domain.Page, error) {
	if err := a.checkTarget(ctx, in); err != nil {
		return domain.Page{}, err
	}
	page := in.page()
	page.ID = pageID
	existing, found, err := a.store.FindPageByTitle(ctx, page.ChapterID, page.Title)
	if err != nil {
		return domain.Page{}, storeErr("find page by title", page.ChapterID, err)
	}
	if found && existing.ID != pageID {
		return domain.Page{}, &ConflictError{ExistingID: existing.ID, Title: page.Title}
	}
	updated, ok, err := a.store.UpdatePage(ctx, page)
	if err != nil {
		return domain.Page{}, storeErr("update page", pageID, err)
	}
	if !ok {
		return domain.Page{}, &NotFoundError{Entity: "page", ID: pageID}
	}
	return updated, nil
}

// DeletePage removes a page.
func (a *App) DeletePage(ctx context.Context, id int64) error {
	ok, err := a.store.DeletePage(ctx, id)
	if err != nil {
		return storeErr("delete page", id, err)
	}
	if !ok {
		return &NotFoundError{Entity: "page", ID: id}
	}
	return nil
}
