package store

import (
	"context"

	"theonebook/pkg/domain"
)

// Store defines persistence operations for users, chapters, pages and notes.
// Chapters and pages are always returned ordered by (order ASC, id ASC).
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, bool, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UserCount(ctx context.Context) (int, error)
	SetLastPosition(ctx context.Context, userID int64, chapterID, pageID *int64) (bool, error)

	// chapters
	ListChaptersOrdered(ctx context.Context) ([]domain.Chapter, error)
	GetChapter(ctx context.Context, id int64) (domain.Chapter, bool, error)
	CreateChapter(ctx context.Context, c domain.Chapter) (domain.Chapter, error)
	UpdateChapter(ctx context.Context, c domain.Chapter) (domain.Chapter, bool, error)
	DeleteChapter(ctx context.Context, id int64) (bool, error)
	ChapterCount(ctx context.Context) (int, error)

	// pages
	ListPagesOrdered(ctx context.Context, chapterID int64) ([]domain.Page, error)
	GetPage(ctx context.Context, id int64) (domain.Page, bool, error)
	FindPageByTitle(ctx context.Context, chapterID int64, title string) (domain.Page, bool, error)
	CreatePage(ctx context.Context, p domain.Page) (domain.Page, error)
	UpdatePage(ctx context.Context, p domain.Page) (domain.Page, bool, error)
	DeletePage(ctx context.Context, id int64) (bool, error)

	// notes
	ListNotes(ctx context.Context, userID int64) ([]domain.Note, error)
	GetNote(ctx context.Context, userID, id int64) (domain.Note, bool, error)
	CreateNote(ctx context.Context, n domain.Note) (domain.Note, error)
	UpdateNote(ctx context.Context, n domain.Note) (domain.Note, bool, error)
	DeleteNote(ctx context.Context, userID, id int64) (bool, error)
}
