package app

import (
	"context"
	"strings"

	"theonebook/pkg/domain"
)

func validateNote(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Fields: []FieldError{{Field: "content", Message: "required"}}}
	}
	return nil
}

// ListNotes returns the caller's notes, newest first.
func (a *App) ListNotes(ctx context.Context, id domain.Identity) ([]domain.Note, error) {
	notes, err := a.store.ListNotes(ctx, id.UserID)
	if err != nil {
		return nil, storeErr("list notes", id.UserID, err)
	}
	return notes, nil
}

// GetNote returns one of the caller's notes. Other users' notes are reported as missing.
func (a *App) GetNote(ctx context.Context, id domain.Identity, noteID int64) (domain.Note, error) {
	n, found, err := a.store.GetNote(ctx, id.UserID, noteID)
	if err != nil {
		return domain.Note{}, storeErr("get note", noteID, err)
	}
	if !found {
		return domain.Note{}, &NotFoundError{Entity: "note", ID: noteID}
	}
	return n, nil
}

// CreateNote adds a note for the caller.
func (a *App) CreateNote(ctx context.Context, id domain.Identity, content string) (domain.Note, error) {
	if err := validateNote(content); err != nil {
		return domain.Note{}, err
	}
	n, err := a.store.CreateNote(ctx, domain.Note{Content: content, UserID: id.UserID})
	if err != nil {
		return domain.Note{}, storeErr("create note", 0, err)
	}
	return n, nil
}

// UpdateNote replaces the content of one of the caller's notes.
func (a *App) UpdateNote(ctx context.Context, id domain.Identity, noteID int64, content string) (domain.Note, error) {
	if err := validateNote(content); err != nil {
		return domain.Note{}, err
	}
	n, ok, err := a.store.UpdateNote(ctx, domain.Note{ID: noteID, UserID: id.UserID, Content: content})
	if err != nil {
		return domain.Note{}, storeErr("update note", noteID, err)
	}
	if !ok {
		return domain.Note{}, &NotFoundError{Entity: "note", ID: noteID}
	}
	return n, nil
}

// DeleteNote removes one of the caller's notes.
func (a *App) DeleteNote(ctx context.Context, id domain.Identity, noteID int64) error {
	ok, err := a.store.DeleteNote(ctx, id.UserID, noteID)
	if err != nil {
		return storeErr("delete note", noteID, err)
	}
	if !ok {
		return &NotFoundError{Entity: "note", ID: noteID}
	}
	return nil
}
