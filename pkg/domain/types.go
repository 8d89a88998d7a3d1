package domain

import "time"

// Chapter groups pages. Chapters and pages are both ordered by (Order, ID).
type Chapter struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	PageCount int       `json:"pageCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is the unit of content. Empty optional fields mean "absent".
type Page struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content,omitempty"`
	Memo        string    `json:"memo,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SubImageURL string    `json:"subImageUrl,omitempty"`
	Order       int       `json:"order"`
	ChapterID   int64     `json:"chapterId"`
	UserID      int64     `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PageSummary is the lightweight listing of a chapter's pages.
type PageSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// NumberedPage is a page as seen by the aggregate viewer.
type NumberedPage struct {
	Page
	ChapterTitle     string `json:"chapterTitle"`
	GlobalPageNumber int    `json:"globalPageNumber"`
}

type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	LastChapterID *int64    `json:"lastChapterId"`
	LastPageID    *int64    `json:"lastPageId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserSummary is what other users may see of an account.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Note is private to its owner.
type Note struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the verified caller behind a bearer token.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	TokenID  string `json:"-"`
}
