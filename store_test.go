package rilis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var baseTime = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestPost(t *testing.T, s *Store, title, slug string, at time.Time) Post {
	t.Helper()
	p := Post{Title: title, Slug: slug, Content: "<p>" + title + "</p>", CreatedAt: at}
	if err := s.CreatePost(context.Background(), &p); err != nil {
		t.Fatalf("CreatePost(%q) failed: %v", slug, err)
	}
	return p
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestNewStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cms.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	createTestPost(t, s, "Kept", "kept", baseTime)
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.GetPostBySlug(context.Background(), "kept"); err != nil {
		t.Fatalf("post lost after reopen: %v", err)
	}
}

func TestCreateAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := Post{
		Title:           "Test Post",
		Content:         "<p>Body</p>",
		Slug:            "test-post",
		Thumbnail:       "/uploads/img_1.jpg",
		Categories:      "go,web",
		Tags:            "testing",
		MetaTitle:       "Meta",
		MetaDescription: "Description",
		MetaKeywords:    "a,b",
		CreatedAt:       baseTime,
		Featured:        true,
	}
	if err := s.CreatePost(ctx, &p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("ID should be set")
	}

	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != p.Title || got.Slug != p.Slug || got.Content != p.Content {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if got.Categories != "go,web" || got.Tags != "testing" {
		t.Errorf("lists = %q / %q", got.Categories, got.Tags)
	}
	if !got.Featured {
		t.Error("Featured should be true")
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
	}

	bySlug, err := s.GetPostBySlug(ctx, "test-post")
	if err != nil {
		t.Fatalf("GetPostBySlug failed: %v", err)
	}
	if bySlug.ID != p.ID {
		t.Errorf("GetPostBySlug ID = %d, want %d", bySlug.ID, p.ID)
	}
}

func TestCreatePostDefaultsCreatedAt(t *testing.T) {
	s := setupTestStore(t)
	p := Post{Title: "Now", Slug: "now"}
	if err := s.CreatePost(context.Background(), &p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)
	createTestPost(t, s, "First", "same", baseTime)

	p := Post{Title: "Second", Slug: "same", CreatedAt: baseTime}
	err := s.CreatePost(context.Background(), &p)
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("err = %v, want ErrSlugTaken", err)
	}

	posts, err := s.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetPost(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetPostBySlug(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListPostsOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	createTestPost(t, s, "Old", "old", baseTime)
	createTestPost(t, s, "New", "new", baseTime.Add(48*time.Hour))
	createTestPost(t, s, "Mid", "mid", baseTime.Add(24*time.Hour))

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(posts) != len(want) {
		t.Fatalf("len(posts) = %d, want %d", len(posts), len(want))
	}
	for i, slug := range want {
		if posts[i].Slug != slug {
			t.Errorf("posts[%d].Slug = %q, want %q", i, posts[i].Slug, slug)
		}
	}

	latest, err := s.ListLatest(ctx, 2)
	if err != nil {
		t.Fatalf("ListLatest failed: %v", err)
	}
	if len(latest) != 2 || latest[0].Slug != "new" || latest[1].Slug != "mid" {
		t.Errorf("ListLatest = %+v", latest)
	}
}

func TestListFeatured(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	createTestPost(t, s, "Plain", "plain", baseTime)
	f := Post{Title: "Star", Slug: "star", CreatedAt: baseTime.Add(time.Hour), Featured: true}
	if err := s.CreatePost(ctx, &f); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	featured, err := s.ListFeatured(ctx)
	if err != nil {
		t.Fatalf("ListFeatured failed: %v", err)
	}
	if len(featured) != 1 || featured[0].Slug != "star" {
		t.Errorf("ListFeatured = %+v", featured)
	}
}

func TestAdjacentPosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	first := createTestPost(t, s, "First", "first", baseTime)
	second := createTestPost(t, s, "Second", "second", baseTime.Add(time.Hour))
	third := createTestPost(t, s, "Third", "third", baseTime.Add(2*time.Hour))

	prev, next, err := s.AdjacentPosts(ctx, second)
	if err != nil {
		t.Fatalf("AdjacentPosts failed: %v", err)
	}
	if prev == nil || prev.ID != first.ID {
		t.Errorf("prev = %+v, want %q", prev, first.Slug)
	}
	if next == nil || next.ID != third.ID {
		t.Errorf("next = %+v, want %q", next, third.Slug)
	}

	prev, next, err = s.AdjacentPosts(ctx, first)
	if err != nil {
		t.Fatalf("AdjacentPosts failed: %v", err)
	}
	if prev != nil {
		t.Errorf("prev = %+v, want nil", prev)
	}
	if next == nil || next.ID != second.ID {
		t.Errorf("next = %+v, want %q", next, second.Slug)
	}

	_, next, err = s.AdjacentPosts(ctx, third)
	if err != nil {
		t.Fatalf("AdjacentPosts failed: %v", err)
	}
	if next != nil {
		t.Errorf("next = %+v, want nil", next)
	}
}

func TestUpdatePost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Original", "original", baseTime)

	p.Title = "Updated"
	p.Slug = "updated"
	p.Content = "<p>new</p>"
	p.CreatedAt = baseTime.Add(time.Hour)
	if err := s.UpdatePost(ctx, &p); err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}

	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Updated" || got.Slug != "updated" || got.Content != "<p>new</p>" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt changed to %v", got.CreatedAt)
	}
}

func TestUpdatePostErrors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	createTestPost(t, s, "Taken", "taken", baseTime)
	p := createTestPost(t, s, "Other", "other", baseTime.Add(time.Hour))

	p.Slug = "taken"
	if err := s.UpdatePost(ctx, &p); !errors.Is(err, ErrSlugTaken) {
		t.Errorf("err = %v, want ErrSlugTaken", err)
	}

	missing := Post{ID: 999, Title: "Ghost", Slug: "ghost"}
	if err := s.UpdatePost(ctx, &missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Doomed", "doomed", baseTime)

	if err := s.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.DeletePost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSlugExists(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Here", "here", baseTime)

	tests := []struct {
		slug    string
		exclude int64
		want    bool
	}{
		{"here", 0, true},
		{"here", p.ID, false},
		{"elsewhere", 0, false},
	}
	for _, tt := range tests {
		got, err := s.SlugExists(ctx, tt.slug, tt.exclude)
		if err != nil {
			t.Fatalf("SlugExists failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("SlugExists(%q, %d) = %v, want %v", tt.slug, tt.exclude, got, tt.want)
		}
	}
}

func TestUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.EnsureDefaultUser(ctx, "admin", "secret")
	if err != nil {
		t.Fatalf("EnsureDefaultUser failed: %v", err)
	}
	if !created {
		t.Fatal("expected default user to be created")
	}
	created, err = s.EnsureDefaultUser(ctx, "admin", "other")
	if err != nil {
		t.Fatalf("EnsureDefaultUser failed: %v", err)
	}
	if created {
		t.Error("default user should only be created once")
	}

	u, err := s.Authenticate(ctx, "admin", "secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.Username != "admin" || u.PasswordHash == "secret" {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := s.Authenticate(ctx, "admin", "other"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPragmasOnEveryConnection(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Hold several connections at once so the pool cannot hand back the
	// same one twice.
	for i := 0; i < 3; i++ {
		conn, err := s.db.Connx(ctx)
		if err != nil {
			t.Fatalf("Connx failed: %v", err)
		}
		defer conn.Close()

		var timeout int
		if err := conn.GetContext(ctx, &timeout, "PRAGMA busy_timeout"); err != nil {
			t.Fatalf("read busy_timeout: %v", err)
		}
		if timeout != 5000 {
			t.Errorf("conn %d busy_timeout = %d, want 5000", i, timeout)
		}
		var mode string
		if err := conn.GetContext(ctx, &mode, "PRAGMA journal_mode"); err != nil {
			t.Fatalf("read journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("conn %d journal_mode = %q, want wal", i, mode)
		}
	}
}
