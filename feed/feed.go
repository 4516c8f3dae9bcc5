// Package feed models the static article feed consumed by the front-end
// theme (data/articles.json) and the read-only queries the theme runs over
// it: featured and latest lists, category and tag filters, text search and
// table-of-contents generation.
//
// A Snapshot is immutable once loaded; every query returns a fresh slice.
package feed

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Article is one entry of the feed's articles array.
type Article struct {
	ID       int64    `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
	Image    string   `json:"image"`
	Author   string   `json:"author"`
	Featured bool     `json:"featured"`
}

// Document is the top-level JSON object of the feed file.
type Document struct {
	Articles []Article `json:"articles"`
}

// Snapshot is an immutable, loaded copy of a feed.
type Snapshot struct {
	articles []Article
}

// New builds a Snapshot from articles. The slice is copied.
func New(articles []Article) *Snapshot {
	return &Snapshot{articles: slices.Clone(articles)}
}

// Load decodes a feed document from r.
func Load(r io.Reader) (*Snapshot, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &Snapshot{articles: doc.Articles}, nil
}

// LoadFile reads and decodes the feed at path.
func LoadFile(fsys afero.Fs, path string) (*Snapshot, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc Document) error {
	if doc.Articles == nil {
		doc.Articles = []Article{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Len returns the number of articles.
func (s *Snapshot) Len() int {
	return len(s.articles)
}

// Articles returns all articles in feed order.
func (s *Snapshot) Articles() []Article {
	return slices.Clone(s.articles)
}

// Featured returns the articles flagged featured, in feed order.
func (s *Snapshot) Featured() []Article {
	return s.filter(func(a Article) bool { return a.Featured })
}

// Latest returns up to n articles, newest first. Articles with an unparsable
// date sort last.
func (s *Snapshot) Latest(n int) []Article {
	out := slices.Clone(s.articles)
	slices.SortStableFunc(out, func(a, b Article) int {
		return parseDate(b.Date).Compare(parseDate(a.Date))
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Recommended returns up to n articles other than currentID, in feed order.
func (s *Snapshot) Recommended(currentID int64, n int) []Article {
	out := s.filter(func(a Article) bool { return a.ID != currentID })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ByID looks up an article by id.
func (s *Snapshot) ByID(id int64) (Article, bool) {
	for _, a := range s.articles {
		if a.ID == id {
			return a, true
		}
	}
	return Article{}, false
}

// BySlug looks up an article by slug.
func (s *Snapshot) BySlug(slug string) (Article, bool) {
	for _, a := range s.articles {
		if a.Slug == slug {
			return a, true
		}
	}
	return Article{}, false
}

// FilterByCategory returns articles whose category equals category, ignoring
// case. The pseudo-category "all" returns every article, newest first.
func (s *Snapshot) FilterByCategory(category string) []Article {
	if strings.EqualFold(category, "all") {
		return s.Latest(-1)
	}
	return s.filter(func(a Article) bool {
		return strings.EqualFold(a.Category, category)
	})
}

// FilterByTag returns articles having a tag that contains tag, ignoring case.
func (s *Snapshot) FilterByTag(tag string) []Article {
	needle := strings.ToLower(strings.TrimSpace(tag))
	return s.filter(func(a Article) bool {
		for _, t := range a.Tags {
			if strings.Contains(strings.ToLower(t), needle) {
				return true
			}
		}
		return false
	})
}

// Search returns articles whose title, excerpt, content, category or any tag
// contains query as a case-insensitive substring. A blank query matches
// nothing.
func (s *Snapshot) Search(query string) []Article {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	q := strings.ToLower(query)
	return s.filter(func(a Article) bool {
		if strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.Excerpt), q) ||
			strings.Contains(strings.ToLower(a.Content), q) ||
			strings.Contains(strings.ToLower(a.Category), q) {
			return true
		}
		for _, t := range a.Tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	})
}

func (s *Snapshot) filter(keep func(Article) bool) []Article {
	var out []Article
	for _, a := range s.articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Highlight HTML-escapes text and wraps every case-insensitive occurrence of
// query in <mark>. The query is matched literally.
func Highlight(text, query string) string {
	if strings.TrimSpace(query) == "" {
		return html.EscapeString(text)
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		b.WriteString("<mark>")
		b.WriteString(html.EscapeString(text[loc[0]:loc[1]]))
		b.WriteString("</mark>")
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
