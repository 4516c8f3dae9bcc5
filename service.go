package rilis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// maxSlugAttempts bounds how often a create or rename re-allocates a slug
// after losing the race for it to a concurrent writer.
const maxSlugAttempts = 3

// PostService provides the operator-facing post operations on top of the
// store: slug allocation, content sanitising and search.
type PostService struct {
	store     *Store
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewPostService creates a PostService backed by store.
func NewPostService(store *Store, now func() time.Time) *PostService {
	if now == nil {
		now = time.Now
	}
	// UGCPolicy keeps ordinary formatting (headings, links, lists, images)
	// and strips scripts and event handlers.
	return &PostService{
		store:     store,
		sanitizer: bluemonday.UGCPolicy(),
		now:       now,
	}
}

func (s *PostService) apply(p *Post, in PostInput) {
	p.Title = in.Title
	p.Content = s.sanitizer.Sanitize(in.Content)
	p.Thumbnail = in.Thumbnail
	p.Categories = JoinList(in.Categories)
	p.Tags = JoinList(in.Tags)
	p.MetaTitle = in.MetaTitle
	p.MetaDescription = in.MetaDescription
	p.MetaKeywords = in.MetaKeywords
	p.Featured = in.Featured
}

// Create stores a new post with a freshly allocated slug.
func (s *PostService) Create(ctx context.Context, in PostInput) (Post, error) {
	p := Post{CreatedAt: s.now().UTC()}
	s.apply(&p, in)
	err := s.withSlug(ctx, &p, func() error {
		return s.store.CreatePost(ctx, &p)
	})
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// Update rewrites post id from in. The slug is re-allocated only when the
// new title slugifies differently from the old one; the old slug is then
// abandoned.
func (s *PostService) Update(ctx context.Context, id int64, in PostInput) (Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	renamed := Slugify(in.Title) != Slugify(p.Title)
	s.apply(&p, in)
	write := func() error { return s.store.UpdatePost(ctx, &p) }
	if renamed {
		err = s.withSlug(ctx, &p, write)
	} else {
		err = write()
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// withSlug allocates a slug for p and runs write, allocating again when
// write loses the slug to a concurrent writer.
func (s *PostService) withSlug(ctx context.Context, p *Post, write func() error) error {
	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		p.Slug, err = AllocateSlug(ctx, s.store, p.Title, p.ID)
		if err != nil {
			return fmt.Errorf("allocate slug: %w", err)
		}
		if err = write(); !errors.Is(err, ErrSlugTaken) {
			return err
		}
	}
	return err
}

// Delete removes post id.
func (s *PostService) Delete(ctx context.Context, id int64) error {
	return s.store.DeletePost(ctx, id)
}

// Get returns post id.
func (s *PostService) Get(ctx context.Context, id int64) (Post, error) {
	return s.store.GetPost(ctx, id)
}

// List returns every post, newest first.
func (s *PostService) List(ctx context.Context) ([]Post, error) {
	return s.store.ListPosts(ctx)
}

// Search returns every post matching query; see SearchPosts.
func (s *PostService) Search(ctx context.Context, query string) ([]Post, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return SearchPosts(posts, query), nil
}
