package app

import (
	"context"
	"strings"

	"theonebook/pkg/auth"
	"theonebook/pkg/domain"
)

// Login checks the credentials and issues an access token.
func (a *App) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	verr := &ValidationError{}
	if username == "" {
		verr.add("username", "required")
	}
	if password == "" {
		verr.add("password", "required")
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, "", err
	}
	user, found, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, "", storeErr("get user by username", 0, err)
	}
	if !found || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Logout revokes the token for the rest of its lifetime.
func (a *App) Logout(ctx context.Context, token string) error {
	return a.tokens.Revoke(ctx, token)
}

// Authenticate verifies a bearer token.
func (a *App) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	return a.tokens.Verify(ctx, token)
}

// Me returns the caller's account.
func (a *App) Me(ctx context.Context, id domain.Identity) (domain.User, error) {
	user, found, err := a.store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return domain.User{}, storeErr("get user", id.UserID, err)
	}
	if !found {
		return domain.User{}, &NotFoundError{Entity: "user", ID: id.UserID}
	}
	return user, nil
}

// ListUsers returns the public profile of every account.
func (a *App) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", 0, err)
	}
	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, domain.UserSummary{ID: u.ID, Username: u.Username, Name: u.Name})
	}
	return out, nil
}

// SaveLastPosition stores the caller's resume cursor. Nil clears a field.
func (a *App) SaveLastPosition(ctx context.Context, id domain.Identity, chapterID, pageID *int64) (domain.User, error) {
	ok, err := a.store.SetLastPosition(ctx, id.UserID, chapterID, pageID)
	if err != nil {
		return domain.User{}, storeErr("set last position", id.UserID, err)
	}
	if !ok {
		return domain.User{}, &NotFoundError{Entity: "user", ID: id.UserID}
	}
	return a.Me(ctx, id)
}
