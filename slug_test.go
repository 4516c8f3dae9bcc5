package rilis

import (
	"context"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World!", "hello-world"},
		{"Hello, World", "hello-world"},
		{"  Go 1.24 released  ", "go-1-24-released"},
		{"snake_case_title", "snake-case-title"},
		{"---", ""},
		{"Çay & Simit", "ay-simit"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type setChecker map[string]int64

func (c setChecker) SlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	id, ok := c[slug]
	return ok && id != excludeID, nil
}

func TestAllocateSlugSequence(t *testing.T) {
	ctx := context.Background()
	taken := setChecker{}
	want := []string{"my-post", "my-post-1", "my-post-2", "my-post-3"}
	for i, w := range want {
		got, err := AllocateSlug(ctx, taken, "My Post", 0)
		if err != nil {
			t.Fatalf("AllocateSlug failed: %v", err)
		}
		if got != w {
			t.Fatalf("allocation %d = %q, want %q", i, got, w)
		}
		taken[got] = int64(i + 1)
	}
}

func TestAllocateSlugEmptyTitle(t *testing.T) {
	ctx := context.Background()
	taken := setChecker{}
	for _, w := range []string{"1", "2", "3"} {
		got, err := AllocateSlug(ctx, taken, "!!!", 0)
		if err != nil {
			t.Fatalf("AllocateSlug failed: %v", err)
		}
		if got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
		taken[got] = int64(len(taken) + 1)
	}
}

func TestAllocateSlugExcludesSelf(t *testing.T) {
	taken := setChecker{"about": 7}
	got, err := AllocateSlug(context.Background(), taken, "About", 7)
	if err != nil {
		t.Fatalf("AllocateSlug failed: %v", err)
	}
	if got != "about" {
		t.Errorf("got %q, want %q", got, "about")
	}
}

func TestAllocateSlugAgainstStore(t *testing.T) {
	s := setupTestStore(t)
	svc := NewPostService(s, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, PostInput{Title: "Hello World!"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.Slug != "hello-world" {
		t.Fatalf("first slug = %q, want hello-world", first.Slug)
	}

	second, err := svc.Create(ctx, PostInput{Title: "Hello, World"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if second.Slug != "hello-world-1" {
		t.Fatalf("second slug = %q, want hello-world-1", second.Slug)
	}

	if err := svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	third, err := svc.Create(ctx, PostInput{Title: "Hello World"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if third.Slug != "hello-world" {
		t.Errorf("third slug = %q, want hello-world", third.Slug)
	}
}

func TestAllocateSlugSkipsReserved(t *testing.T) {
	ctx := context.Background()
	taken := setChecker{}
	for _, w := range []string{"index-1", "index-2"} {
		got, err := AllocateSlug(ctx, taken, "Index", 0)
		if err != nil {
			t.Fatalf("AllocateSlug failed: %v", err)
		}
		if got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
		taken[got] = int64(len(taken) + 1)
	}

	got, err := AllocateSlug(ctx, taken, "Index page", 0)
	if err != nil {
		t.Fatalf("AllocateSlug failed: %v", err)
	}
	if got != "index-page" {
		t.Errorf("got %q, want index-page", got)
	}
}
