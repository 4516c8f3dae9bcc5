package rilis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/eringen/rilis/migrations"
)

var (
	// ErrNotFound is returned when a requested post or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlugTaken is returned when an insert or update collides with the
	// unique slug constraint.
	ErrSlugTaken = errors.New("slug already taken")
)

const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

var postColumns = []string{
	"id", "title", "content", "slug", "thumbnail", "categories", "tags",
	"meta_title", "meta_description", "meta_keywords", "created_at", "featured",
}

// Store wraps a SQLite database and provides CRUD operations for posts and
// operator accounts.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and applies the embedded migrations.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := ApplyMigrations(path); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them: WAL for
	// concurrent readers, and a busy timeout so writers wait instead of
	// returning SQLITE_BUSY immediately.
	db, err := sqlx.Open("sqlite", path+sqlitePragmas)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return &Store{db: db}, nil
}

// ApplyMigrations runs all up migrations against the database at path.
func ApplyMigrations(path string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func selectPosts() sq.SelectBuilder {
	return sq.Select(postColumns...).From("posts")
}

func (s *Store) getPost(ctx context.Context, q sq.SelectBuilder) (Post, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return Post{}, err
	}
	var p Post
	if err := s.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (s *Store) listPosts(ctx context.Context, q sq.SelectBuilder) ([]Post, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// CreatePost inserts p and sets its ID. The insert is the uniqueness check:
// a slug that already exists yields ErrSlugTaken and nothing is written.
// A zero CreatedAt is set to the current time.
func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	// Timestamps are stored as text; keeping them in UTC keeps the text
	// order equal to the time order.
	p.CreatedAt = p.CreatedAt.UTC()
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO posts
		(title, content, slug, thumbnail, categories, tags, meta_title, meta_description, meta_keywords, created_at, featured)
		VALUES (:title, :content, :slug, :thumbnail, :categories, :tags, :meta_title, :meta_description, :meta_keywords, :created_at, :featured)`, p)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read post id: %w", err)
	}
	p.ID = id
	return nil
}

// GetPost returns a post by id.
func (s *Store) GetPost(ctx context.Context, id int64) (Post, error) {
	return s.getPost(ctx, selectPosts().Where(sq.Eq{"id": id}))
}

// GetPostBySlug returns a post by slug.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	return s.getPost(ctx, selectPosts().Where(sq.Eq{"slug": slug}))
}

// ListPosts returns every post ordered by creation time, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	return s.listPosts(ctx, selectPosts().OrderBy("created_at DESC", "id DESC"))
}

// ListFeatured returns every featured post, newest first.
func (s *Store) ListFeatured(ctx context.Context) ([]Post, error) {
	return s.listPosts(ctx, selectPosts().Where(sq.Eq{"featured": true}).OrderBy("created_at DESC", "id DESC"))
}

// ListLatest returns the n most recently created posts.
func (s *Store) ListLatest(ctx context.Context, n int) ([]Post, error) {
	return s.listPosts(ctx, selectPosts().OrderBy("created_at DESC", "id DESC").Limit(uint64(n)))
}

// AdjacentPosts returns the latest post created strictly before p and the
// earliest post created strictly after it. Either may be nil.
func (s *Store) AdjacentPosts(ctx context.Context, p Post) (prev, next *Post, err error) {
	at := p.CreatedAt.UTC()
	before, err := s.getPost(ctx, selectPosts().
		Where(sq.Lt{"created_at": at}).
		OrderBy("created_at DESC", "id DESC").Limit(1))
	switch {
	case err == nil:
		prev = &before
	case !errors.Is(err, ErrNotFound):
		return nil, nil, err
	}

	after, err := s.getPost(ctx, selectPosts().
		Where(sq.Gt{"created_at": at}).
		OrderBy("created_at ASC", "id ASC").Limit(1))
	switch {
	case err == nil:
		next = &after
	case !errors.Is(err, ErrNotFound):
		return nil, nil, err
	}
	return prev, next, nil
}

// UpdatePost writes every editable column of p. CreatedAt is never changed.
func (s *Store) UpdatePost(ctx context.Context, p *Post) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE posts SET
		title = :title, content = :content, slug = :slug, thumbnail = :thumbnail,
		categories = :categories, tags = :tags, meta_title = :meta_title,
		meta_description = :meta_description, meta_keywords = :meta_keywords,
		featured = :featured
		WHERE id = :id`, p)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post by id. Exported files are left alone.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SlugExists reports whether a post other than excludeID uses slug. Pass 0
// to check against every post.
func (s *Store) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	q := sq.Select("COUNT(*)").From("posts").Where(sq.Eq{"slug": slug})
	if excludeID != 0 {
		q = q.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return n > 0, nil
}
