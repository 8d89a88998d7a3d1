// Package export turns the ordered chapter/page tree into a single document.
//
// The pipeline reads every chapter and its pages in order, numbers the pages
// 1..N across the whole book, resolves each page image through an
// AssetFetcher and hands the result to a Document section by section.
// A failed image never aborts an export; a failed content read always does,
// before anything is written to the Document.
package export

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"theonebook/internal/util"
	"theonebook/pkg/domain"
)

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=mocks/mock_pipeline.go -package=mocks theonebook/internal/export ContentSource,AssetFetcher

// ContentSource is the read side of the content store.
type ContentSource interface {
	ListChaptersOrdered(ctx context.Context) ([]domain.Chapter, error)
	ListPagesOrdered(ctx context.Context, chapterID int64) ([]domain.Page, error)
}

// AssetFetcher resolves an image URL to its bytes.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Document receives sections in book order.
type Document interface {
	// NewPage starts a new output page. It is not called before the first section.
	NewPage()
	ChapterHeading(text string)
	PageHeading(text string)
	// Image embeds an encoded image; an error leaves the document unchanged.
	Image(name string, data []byte) error
	Body(text string)
}

// Stats summarizes one export run.
type Stats struct {
	Chapters      int
	Pages         int
	Images        int
	ImageFailures int
}

// Pipeline renders the book. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	source      ContentSource
	fetcher     AssetFetcher
	concurrency int
}

// NewPipeline builds a pipeline. concurrency > 1 prefetches images in parallel;
// rendering order is unaffected.
func NewPipeline(source ContentSource, fetcher AssetFetcher, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{source: source, fetcher: fetcher, concurrency: concurrency}
}

type fetched struct {
	data []byte
	err  error
	done bool
}

// Render loads the content and writes every section to doc.
// On a content read error or cancellation nothing has been written to doc
// beyond what preceded the failure; callers must discard doc on error.
func (p *Pipeline) Render(ctx context.Context, doc Document) (Stats, error) {
	var stats Stats
	chapters, err := Load(ctx, p.source)
	if err != nil {
		return stats, err
	}
	sections := Plan(chapters)
	for _, cp := range chapters {
		if len(cp.Pages) > 0 {
			stats.Chapters++
		}
	}

	images := make([]fetched, len(sections))
	if p.concurrency > 1 {
		p.prefetch(ctx, sections, images)
	}

	logger := util.LoggerFromContext(ctx)
	for i, s := range sections {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if i > 0 {
			doc.NewPage()
		}
		if s.FirstInChapter {
			doc.ChapterHeading(s.ChapterHeading())
		}
		doc.PageHeading(s.PageHeading())

		if imageURL := strings.TrimSpace(s.Page.ImageURL); imageURL != "" {
			img := images[i]
			if !img.done {
				img.data, img.err = p.fetcher.Fetch(ctx, imageURL)
			}
			if img.err == nil {
				img.err = doc.Image(fmt.Sprintf("page-%d", s.Number), img.data)
			}
			if img.err != nil {
				if err := ctx.Err(); err != nil {
					return stats, err
				}
				stats.ImageFailures++
				logger.Warn("export_image_skipped",
					"page_id", s.Page.ID,
					"page_number", s.Number,
					"url", imageURL,
					"err", img.err,
				)
			} else {
				stats.Images++
			}
			images[i] = fetched{}
		}

		if s.Page.Content != "" {
			doc.Body(s.Page.Content)
		}
		stats.Pages++
	}
	return stats, nil
}

// prefetch downloads all images with bounded parallelism. Results are stored
// by section index so rendering can stay sequential.
func (p *Pipeline) prefetch(ctx context.Context, sections []Section, out []fetched) {
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, s := range sections {
		imageURL := strings.TrimSpace(s.Page.ImageURL)
		if imageURL == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			data, err := p.fetcher.Fetch(ctx, imageURL)
			out[i] = fetched{data: data, err: err, done: true}
			return nil
		})
	}
	_ = g.Wait()
}
