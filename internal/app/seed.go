package app

import (
	"context"
	"strings"

	"theonebook/internal/util"
	"theonebook/pkg/auth"
	"theonebook/pkg/domain"
)

// SeedUser is an account created on an empty database.
type SeedUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
}

// SeedChapter is a chapter created on an empty database.
type SeedChapter struct {
	Title string `yaml:"title"`
	Order int    `yaml:"order"`
}

// SeedConfig describes the initial data set. Empty lists fall back to the defaults.
type SeedConfig struct {
	DefaultPassword string        `yaml:"defaultPassword"`
	Users           []SeedUser    `yaml:"users"`
	Chapters        []SeedChapter `yaml:"chapters"`
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Users    int
	Chapters int
}

const defaultSeedPassword = "theone"

var defaultSeedUsers = []SeedUser{
	{Username: "joanna", Name: "조안나"},
	{Username: "oksusu", Name: "옥수수"},
	{Username: "guest", Name: "게스트"},
}

var defaultSeedChapters = []SeedChapter{
	{Title: "머리말", Order: 1},
	{Title: "목차", Order: 2},
	{Title: "문제", Order: 3},
	{Title: "마음", Order: 4},
	{Title: "감정", Order: 5},
	{Title: "몸", Order: 6},
	{Title: "수면", Order: 7},
	{Title: "과학", Order: 8},
	{Title: "관계", Order: 9},
	{Title: "성공", Order: 10},
	{Title: "자아발견", Order: 11},
	{Title: "맺음말", Order: 12},
}

// Seed creates the default users when there are none and the default chapters
// when there are none. Existing data is never touched.
func (a *App) Seed(ctx context.Context, cfg SeedConfig) (SeedResult, error) {
	var res SeedResult
	logger := util.LoggerFromContext(ctx)

	users, err := a.store.UserCount(ctx)
	if err != nil {
		return res, storeErr("count users", 0, err)
	}
	if users == 0 {
		password := cfg.DefaultPassword
		if strings.TrimSpace(password) == "" {
			password = defaultSeedPassword
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return res, err
		}
		list := cfg.Users
		if len(list) == 0 {
			list = defaultSeedUsers
		}
		for _, u := range list {
			if strings.TrimSpace(u.Username) == "" {
				continue
			}
			if _, err := a.store.CreateUser(ctx, domain.User{
				Username:     strings.TrimSpace(u.Username),
				Name:         u.Name,
				PasswordHash: hash,
			}); err != nil {
				return res, storeErr("create user", 0, err)
			}
			res.Users++
		}
		logger.Info("seed_users_created", "count", res.Users)
	}

	chapters, err := a.store.ChapterCount(ctx)
	if err != nil {
		return res, storeErr("count chapters", 0, err)
	}
	if chapters == 0 {
		list := cfg.Chapters
		if len(list) == 0 {
			list = defaultSeedChapters
		}
		for _, c := range list {
			if strings.TrimSpace(c.Title) == "" {
				continue
			}
			if _, err := a.store.CreateChapter(ctx, domain.Chapter{Title: strings.TrimSpace(c.Title), Order: c.Order}); err != nil {
				return res, storeErr("create chapter", 0, err)
			}
			res.Chapters++
		}
		logger.Info("seed_chapters_created", "count", res.Chapters)
	}
	return res, nil
}
