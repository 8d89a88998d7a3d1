package export

import (
	"context"
	"fmt"

	"theonebook/pkg/domain"
)

// ChapterPages is one chapter with its pages, both already ordered.
type ChapterPages struct {
	Chapter domain.Chapter
	Pages   []domain.Page
}

// Section is one page of the book with its global page number.
type Section struct {
	Number         int
	Chapter        domain.Chapter
	Page           domain.Page
	FirstInChapter bool
}

// ChapterHeading is printed once, above the first section of a chapter.
func (s Section) ChapterHeading() string {
	return fmt.Sprintf("%d. %s", s.Chapter.Order, s.Chapter.Title)
}

// PageHeading is printed above every section.
func (s Section) PageHeading() string {
	return fmt.Sprintf("%d. %s", s.Number, s.Page.Title)
}

// Plan numbers pages 1..N across all chapters in input order.
// Chapters without pages produce no sections and consume no numbers.
func Plan(chapters []ChapterPages) []Section {
	var sections []Section
	n := 0
	for _, cp := range chapters {
		for i, page := range cp.Pages {
			n++
			sections = append(sections, Section{
				Number:         n,
				Chapter:        cp.Chapter,
				Page:           page,
				FirstInChapter: i == 0,
			})
		}
	}
	return sections
}

// Load reads every chapter and its pages from src in order.
func Load(ctx context.Context, src ContentSource) ([]ChapterPages, error) {
	chapters, err := src.ListChaptersOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	out := make([]ChapterPages, 0, len(chapters))
	for _, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages, err := src.ListPagesOrdered(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("list pages of chapter %d: %w", ch.ID, err)
		}
		out = append(out, ChapterPages{Chapter: ch, Pages: pages})
	}
	return out, nil
}
