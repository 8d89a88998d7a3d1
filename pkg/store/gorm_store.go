package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"theonebook/pkg/domain"
)

const migrateLockID int64 = 51820417

// GormStore implements Store using GORM over Postgres or SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
// DSNs starting with postgres:// (or key=value DSNs with host=) use Postgres;
// anything else is treated as a SQLite file path.
func NewGormStore(dsn string) (*GormStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	dialector := dialectorFor(dsn)
	if dialector.Name() == "sqlite" {
		path := sqlitePath(dsn)
		if dir := filepath.Dir(path); path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ChapterModel{}, &PageModel{}, &NoteModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.Contains(lower, "host="):
		return postgres.Open(dsn)
	default:
		return sqlite.Open(sqlitePath(dsn))
	}
}

func sqlitePath(dsn string) string {
	return strings.TrimPrefix(dsn, "sqlite://")
}

// withMigrationLock serializes migrations across replicas on Postgres.
func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	if db.Dialector.Name() != "postgres" {
		return fn(db)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser inserts a user and returns it with its assigned ID.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	model := userToModel(u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by id.
func (s *GormStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SetLastPosition stores the user's resume cursor. Nil clears a field.
func (s *GormStore) SetLastPosition(ctx context.Context, userID int64, chapterID, pageID *int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"last_chapter_id": chapterID,
			"last_page_id":    pageID,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListChaptersOrdered returns all chapters with their page counts.
func (s *GormStore) ListChaptersOrdered(ctx context.Context) ([]domain.Chapter, error) {
	var rows []chapterRow
	err := s.db.WithContext(ctx).Model(&ChapterModel{}).
		Select("chapter_models.*, (SELECT COUNT(*) FROM page_models WHERE page_models.chapter_id = chapter_models.id) AS page_count").
		Order("sort_order ASC").
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Chapter, 0, len(rows))
	for _, r := range rows {
		res = append(res, chapterFromRow(r))
	}
	return res, nil
}

// GetChapter returns one chapter by ID.
func (s *GormStore) GetChapter(ctx context.Context, id int64) (domain.Chapter, bool, error) {
	var model ChapterModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Chapter{}, false, nil
		}
		return domain.Chapter{}, false, err
	}
	return chapterFromModel(model), true, nil
}

// CreateChapter inserts a chapter.
func (s *GormStore) CreateChapter(ctx context.Context, c domain.Chapter) (domain.Chapter, error) {
	model := chapterToModel(c)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Chapter{}, err
	}
	return chapterFromModel(model), nil
}

// UpdateChapter replaces title and order of an existing chapter.
func (s *GormStore) UpdateChapter(ctx context.Context, c domain.Chapter) (domain.Chapter, bool, error) {
	res := s.db.WithContext(ctx).Model(&ChapterModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"title":      c.Title,
			"sort_order": c.Order,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.Chapter{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Chapter{}, false, nil
	}
	return s.GetChapter(ctx, c.ID)
}

// DeleteChapter removes a chapter together with its pages.
func (s *GormStore) DeleteChapter(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&PageModel{}, "chapter_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&ChapterModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		if !deleted {
			// Nothing to cascade from; roll back so stray pages are untouched.
			return errChapterMissing
		}
		return nil
	})
	if errors.Is(err, errChapterMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

var errChapterMissing = errors.New("chapter missing")

// ChapterCount returns number of chapters.
func (s *GormStore) ChapterCount(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ChapterModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListPagesOrdered returns a chapter's pages.
func (s *GormStore) ListPagesOrdered(ctx context.Context, chapterID int64) ([]domain.Page, error) {
	var models []PageModel
	if err := s.db.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Page, 0, len(models))
	for _, m := range models {
		res = append(res, pageFromModel(m))
	}
	return res, nil
}

// GetPage returns one page by ID.
func (s *GormStore) GetPage(ctx context.Context, id int64) (domain.Page, bool, error) {
	var model PageModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Page{}, false, nil
		}
		return domain.Page{}, false, err
	}
	return pageFromModel(model), true, nil
}

// FindPageByTitle returns the earliest page in a chapter with an exact title.
func (s *GormStore) FindPageByTitle(ctx context.Context, chapterID int64, title string) (domain.Page, bool, error) {
	var model PageModel
	if err := s.db.WithContext(ctx).
		Where("chapter_id = ? AND title = ?", chapterID, title).
		Order("id ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Page{}, false, nil
		}
		return domain.Page{}, false, err
	}
	return pageFromModel(model), true, nil
}

// CreatePage inserts a page.
func (s *GormStore) CreatePage(ctx context.Context, p domain.Page) (domain.Page, error) {
	model := pageToModel(p)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Page{}, err
	}
	return pageFromModel(model), nil
}

// UpdatePage replaces the editable fields of a page. Ownership is kept.
func (s *GormStore) UpdatePage(ctx context.Context, p domain.Page) (domain.Page, bool, error) {
	res := s.db.WithContext(ctx).Model(&PageModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"title":         p.Title,
			"content":       p.Content,
			"memo":          p.Memo,
			"image_url":     p.ImageURL,
			"sub_image_url": p.SubImageURL,
			"sort_order":    p.Order,
			"chapter_id":    p.ChapterID,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.Page{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Page{}, false, nil
	}
	return s.GetPage(ctx, p.ID)
}

// DeletePage removes a page.
func (s *GormStore) DeletePage(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&PageModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListNotes returns the user's notes, newest first.
func (s *GormStore) ListNotes(ctx context.Context, userID int64) ([]domain.Note, error) {
	var models []NoteModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Note, 0, len(models))
	for _, m := range models {
		res = append(res, noteFromModel(m))
	}
	return res, nil
}

// GetNote returns a note only when it belongs to userID.
func (s *GormStore) GetNote(ctx context.Context, userID, id int64) (domain.Note, bool, error) {
	var model NoteModel
	if err := s.db.WithContext(ctx).First(&model, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Note{}, false, nil
		}
		return domain.Note{}, false, err
	}
	return noteFromModel(model), true, nil
}

// CreateNote inserts a note.
func (s *GormStore) CreateNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	model := noteToModel(n)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Note{}, err
	}
	return noteFromModel(model), nil
}

// UpdateNote replaces a note's content when owned by n.UserID.
func (s *GormStore) UpdateNote(ctx context.Context, n domain.Note) (domain.Note, bool, error) {
	res := s.db.WithContext(ctx).Model(&NoteModel{}).
		Where("id = ? AND user_id = ?", n.ID, n.UserID).
		Updates(map[string]any{
			"content":    n.Content,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.Note{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Note{}, false, nil
	}
	return s.GetNote(ctx, n.UserID, n.ID)
}

// DeleteNote removes a note owned by userID.
func (s *GormStore) DeleteNote(ctx context.Context, userID, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&NoteModel{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
