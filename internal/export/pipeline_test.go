package export

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"
	"theonebook/internal/asset"
	"theonebook/internal/export/mocks"
	"theonebook/pkg/domain"
)

type recordingDoc struct {
	events    []string
	imageErrs map[string]error
}

func (d *recordingDoc) NewPage()                   { d.events = append(d.events, "newpage") }
func (d *recordingDoc) ChapterHeading(text string) { d.events = append(d.events, "chapter:"+text) }
func (d *recordingDoc) PageHeading(text string)    { d.events = append(d.events, "heading:"+text) }
func (d *recordingDoc) Body(text string)           { d.events = append(d.events, "body:"+text) }

func (d *recordingDoc) Image(name string, data []byte) error {
	if err := d.imageErrs[name]; err != nil {
		return err
	}
	d.events = append(d.events, fmt.Sprintf("image:%s:%s", name, data))
	return nil
}

func expectScenarioA(src *mocks.MockContentSource, imageURL string) {
	src.EXPECT().ListChaptersOrdered(gomock.Any()).Return([]domain.Chapter{
		{ID: 1, Title: "Intro", Order: 1},
		{ID: 2, Title: "Empty", Order: 2},
		{ID: 3, Title: "Body", Order: 3},
	}, nil)
	src.EXPECT().ListPagesOrdered(gomock.Any(), int64(1)).Return([]domain.Page{
		{ID: 10, Title: "a", Content: "alpha", ImageURL: imageURL},
		{ID: 11, Title: "b"},
	}, nil)
	src.EXPECT().ListPagesOrdered(gomock.Any(), int64(2)).Return(nil, nil)
	src.EXPECT().ListPagesOrdered(gomock.Any(), int64(3)).Return([]domain.Page{
		{ID: 12, Title: "c", Content: "gamma"},
	}, nil)
}

func TestRenderScenarioA(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockContentSource(ctrl)
	fetcher := mocks.NewMockAssetFetcher(ctrl)
	expectScenarioA(src, "http://img.test/a.png")
	fetcher.EXPECT().Fetch(gomock.Any(), "http://img.test/a.png").Return([]byte("png"), nil)

	doc := &recordingDoc{}
	stats, err := NewPipeline(src, fetcher, 1).Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := []string{
		"chapter:1. Intro",
		"heading:1. a",
		"image:page-1:png",
		"body:alpha",
		"newpage",
		"heading:2. b",
		"newpage",
		"chapter:3. Body",
		"heading:3. c",
		"body:gamma",
	}
	if !reflect.DeepEqual(doc.events, want) {
		t.Fatalf("events mismatch:\n got %q\nwant %q", doc.events, want)
	}
	if stats != (Stats{Chapters: 2, Pages: 3, Images: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRenderEmptyBook(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockContentSource(ctrl)
	src.EXPECT().ListChaptersOrdered(gomock.Any()).Return([]domain.Chapter{{ID: 1, Title: "Empty", Order: 1}}, nil)
	src.EXPECT().ListPagesOrdered(gomock.Any(), int64(1)).Return([]domain.Page{}, nil)

	doc := &recordingDoc{}
	stats, err := NewPipeline(src, mocks.NewMockAssetFetcher(ctrl), 1).Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(doc.events) != 0 || stats.Pages != 0 {
		t.Fatalf("expected no output, got %q", doc.events)
	}
}

func TestRenderDegradesOnImageFailure(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
		embedErr error
	}{
		{name: "fetch fails", fetchErr: &asset.FetchError{URL: "http://img.test/a.png", StatusCode: 404}},
		{name: "embed fails", embedErr: errors.New("decode image: unknown format")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mocks.NewMockContentSource(ctrl)
			fetcher := mocks.NewMockAssetFetcher(ctrl)
			expectScenarioA(src, "http://img.test/a.png")
			fetcher.EXPECT().Fetch(gomock.Any(), "http://img.test/a.png").Return([]byte("junk"), tc.fetchErr)

			doc := &recordingDoc{imageErrs: map[string]error{"page-1": tc.embedErr}}
			stats, err := NewPipeline(src, fetcher, 1).Render(context.Background(), doc)
			if err != nil {
				t.Fatalf("image failure must not abort the export: %v", err)
			}
			if stats.ImageFailures != 1 || stats.Images != 0 || stats.Pages != 3 {
				t.Fatalf("unexpected stats: %+v", stats)
			}
			if doc.events[0] != "chapter:1. Intro" || doc.events[1] != "heading:1. a" || doc.events[2] != "body:alpha" {
				t.Fatalf("section 1 should keep heading and body: %q", doc.events)
			}
		})
	}
}

func TestRenderAbortsOnStoreFailureBeforeOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockContentSource(ctrl)
	boom := errors.New("connection reset")
	src.EXPECT().ListChaptersOrdered(gomock.Any()).Return([]domain.Chapter{{ID: 1, Order: 1}, {ID: 2, Order: 2}}, nil)
	src.EXPECT().ListPagesOrdered(gomock.Any(), int64(1)).Return([]domain.Page{{ID: 1, Title: "a"}}, nil)
	src.EXPECT().ListPagesOrdered(gomock.Any(), int64(2)).Return(nil, boom)

	doc := &recordingDoc{}
	_, err := NewPipeline(src, mocks.NewMockAssetFetcher(ctrl), 1).Render(context.Background(), doc)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(doc.events) != 0 {
		t.Fatalf("nothing may be rendered after a store failure, got %q", doc.events)
	}
}

func TestRenderStopsOnCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockContentSource(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	src.EXPECT().ListChaptersOrdered(gomock.Any()).DoAndReturn(func(context.Context) ([]domain.Chapter, error) {
		cancel()
		return []domain.Chapter{{ID: 1, Order: 1}}, nil
	})

	doc := &recordingDoc{}
	_, err := NewPipeline(src, mocks.NewMockAssetFetcher(ctrl), 1).Render(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(doc.events) != 0 {
		t.Fatalf("expected no output after cancellation, got %q", doc.events)
	}
}

func TestRenderParallelPrefetchKeepsOrder(t *testing.T) {
	run := func(concurrency int) []string {
		ctrl := gomock.NewController(t)
		src := mocks.NewMockContentSource(ctrl)
		fetcher := mocks.NewMockAssetFetcher(ctrl)
		var pages []domain.Page
		for i := 1; i <= 8; i++ {
			pages = append(pages, domain.Page{ID: int64(i), Title: fmt.Sprintf("p%d", i), ImageURL: fmt.Sprintf("http://img.test/%d.png", i)})
		}
		src.EXPECT().ListChaptersOrdered(gomock.Any()).Return([]domain.Chapter{{ID: 1, Title: "All", Order: 1}}, nil)
		src.EXPECT().ListPagesOrdered(gomock.Any(), int64(1)).Return(pages, nil)
		fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, url string) ([]byte, error) {
			return []byte(url), nil
		}).Times(8)

		doc := &recordingDoc{}
		if _, err := NewPipeline(src, fetcher, concurrency).Render(context.Background(), doc); err != nil {
			t.Fatalf("render (concurrency %d): %v", concurrency, err)
		}
		return doc.events
	}

	sequential := run(1)
	parallel := run(4)
	if !reflect.DeepEqual(sequential, parallel) {
		t.Fatalf("parallel output differs:\n seq %q\n par %q", sequential, parallel)
	}
}
