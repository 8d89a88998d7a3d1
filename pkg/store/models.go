package store

import (
	"time"

	"theonebook/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Username      string `gorm:"uniqueIndex;not null"`
	PasswordHash  string `gorm:"not null"`
	Name          string `gorm:"not null"`
	LastChapterID *int64
	LastPageID    *int64
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time
}

type ChapterModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"not null"`
	SortOrder int       `gorm:"column:sort_order;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type PageModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null"`
	Content     string `gorm:"type:text"`
	Memo        string `gorm:"type:text"`
	ImageURL    string
	SubImageURL string
	SortOrder   int       `gorm:"column:sort_order;not null;index:idx_page_chapter_order,priority:2"`
	ChapterID   int64     `gorm:"not null;index:idx_page_chapter_order,priority:1"`
	UserID      int64     `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type NoteModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Content   string    `gorm:"type:text;not null"`
	UserID    int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// chapterRow is a chapter joined with its page count.
type chapterRow struct {
	ID        int64
	Title     string
	SortOrder int
	PageCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:            u.ID,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Name:          u.Name,
		LastChapterID: u.LastChapterID,
		LastPageID:    u.LastPageID,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:            m.ID,
		Username:      m.Username,
		PasswordHash:  m.PasswordHash,
		Name:          m.Name,
		LastChapterID: m.LastChapterID,
		LastPageID:    m.LastPageID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func chapterToModel(c domain.Chapter) ChapterModel {
	return ChapterModel{
		ID:        c.ID,
		Title:     c.Title,
		SortOrder: c.Order,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func chapterFromModel(m ChapterModel) domain.Chapter {
	return domain.Chapter{
		ID:        m.ID,
		Title:     m.Title,
		Order:     m.SortOrder,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func chapterFromRow(r chapterRow) domain.Chapter {
	return domain.Chapter{
		ID:        r.ID,
		Title:     r.Title,
		Order:     r.SortOrder,
		PageCount: r.PageCount,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func pageToModel(p domain.Page) PageModel {
	return PageModel{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Memo:        p.Memo,
		ImageURL:    p.ImageURL,
		SubImageURL: p.SubImageURL,
		SortOrder:   p.Order,
		ChapterID:   p.ChapterID,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func pageFromModel(m PageModel) domain.Page {
	return domain.Page{
		ID:          m.ID,
		Title:       m.Title,
		Content:     m.Content,
		Memo:        m.Memo,
		ImageURL:    m.ImageURL,
		SubImageURL: m.SubImageURL,
		Order:       m.SortOrder,
		ChapterID:   m.ChapterID,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func noteToModel(n domain.Note) NoteModel {
	return NoteModel{
		ID:        n.ID,
		Content:   n.Content,
		UserID:    n.UserID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func noteFromModel(m NoteModel) domain.Note {
	return domain.Note{
		ID:        m.ID,
		Content:   m.Content,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
