package rilis

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"io"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eringen/rilis/feed"
	"github.com/eringen/rilis/logger"
	"github.com/eringen/rilis/views"
)

// Output paths, relative to SiteConfig.OutputDir.
const (
	IndexFile    = "index.html"
	SitemapFile  = "sitemap.xml"
	RSSFile      = "feed.xml"
	ArticlesFile = "data/articles.json"
)

const (
	latestCount = 5
	excerptLen  = 160
)

var tracer = otel.Tracer("github.com/eringen/rilis")

var textOnly = bluemonday.StrictPolicy()

// PostSource is the read side of the content store the exporter needs.
type PostSource interface {
	GetPost(ctx context.Context, id int64) (Post, error)
	ListPosts(ctx context.Context) ([]Post, error)
	ListFeatured(ctx context.Context) ([]Post, error)
	ListLatest(ctx context.Context, n int) ([]Post, error)
	AdjacentPosts(ctx context.Context, p Post) (prev, next *Post, err error)
}

// Exporter renders posts and site-wide views into static files. Every write
// replaces the whole file; concurrent exports of the same file race and the
// last writer wins.
type Exporter struct {
	posts PostSource
	views *views.Views
	fs    afero.Fs
	cfg   SiteConfig
	log   logger.Logger
}

// NewExporter creates an Exporter writing below cfg.OutputDir on fs.
func NewExporter(posts PostSource, v *views.Views, fs afero.Fs, cfg SiteConfig, log logger.Logger) *Exporter {
	return &Exporter{posts: posts, views: v, fs: fs, cfg: cfg, log: log}
}

type siteData struct {
	Site    SiteConfig
	BaseURL string
}

type postPage struct {
	siteData
	Post    Post
	Content template.HTML
	TOC     []feed.Heading
	Related []Post
	URL     string
	JSONLD  template.JS
}

type indexPage struct {
	siteData
	Featured []Post
	Latest   []Post
	JSONLD   template.JS
}

// Homepage holds the two lists rendered on the homepage.
type Homepage struct {
	Featured []Post
	Latest   []Post
}

func (e *Exporter) site() siteData {
	return siteData{Site: e.cfg, BaseURL: e.cfg.URL}
}

// PostFile is the output path of a post's page.
func PostFile(slug string) string {
	return slug + ".html"
}

// RelatedPosts returns the previous and then the next post by creation
// time, whichever exist.
func (e *Exporter) RelatedPosts(ctx context.Context, p Post) ([]Post, error) {
	prev, next, err := e.posts.AdjacentPosts(ctx, p)
	if err != nil {
		return nil, err
	}
	var related []Post
	if prev != nil {
		related = append(related, *prev)
	}
	if next != nil {
		related = append(related, *next)
	}
	return related, nil
}

// ExportPost renders post id to <slug>.html. A missing post returns
// ErrNotFound and writes nothing.
func (e *Exporter) ExportPost(ctx context.Context, id int64) (p Post, err error) {
	ctx, span := tracer.Start(ctx, "export.post", trace.WithAttributes(attribute.Int64("post.id", id)))
	defer func() { endSpan(span, err) }()

	p, err = e.posts.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	related, err := e.RelatedPosts(ctx, p)
	if err != nil {
		return Post{}, err
	}
	content, toc, err := feed.TableOfContents(p.Content)
	if err != nil {
		return Post{}, err
	}
	page := postPage{
		siteData: e.site(),
		Post:     p,
		Content:  template.HTML(content),
		TOC:      toc,
		Related:  related,
		URL:      PostURL(e.cfg.URL, p.Slug),
		JSONLD:   template.JS(BlogPostingJsonLD(p, e.cfg)),
	}
	if err := e.write(ctx, PostFile(p.Slug), func(w io.Writer) error {
		return e.views.Component("post.html", page).Render(ctx, w)
	}); err != nil {
		return Post{}, err
	}
	e.log.With(map[string]interface{}{"slug": p.Slug, "related": len(related)}).Info("post exported")
	return p, nil
}

// HomepageLists selects every featured post and the five latest posts. A
// post may appear in both.
func (e *Exporter) HomepageLists(ctx context.Context) (Homepage, error) {
	featured, err := e.posts.ListFeatured(ctx)
	if err != nil {
		return Homepage{}, err
	}
	latest, err := e.posts.ListLatest(ctx, latestCount)
	if err != nil {
		return Homepage{}, err
	}
	return Homepage{Featured: featured, Latest: latest}, nil
}

// ExportIndex renders the homepage to index.html.
func (e *Exporter) ExportIndex(ctx context.Context) (home Homepage, err error) {
	ctx, span := tracer.Start(ctx, "export.index")
	defer func() { endSpan(span, err) }()

	home, err = e.HomepageLists(ctx)
	if err != nil {
		return Homepage{}, err
	}
	page := indexPage{
		siteData: e.site(),
		Featured: home.Featured,
		Latest:   home.Latest,
		JSONLD:   template.JS(WebsiteJsonLD(e.cfg)),
	}
	if err := e.write(ctx, IndexFile, func(w io.Writer) error {
		return e.views.Component("index.html", page).Render(ctx, w)
	}); err != nil {
		return Homepage{}, err
	}
	e.log.Info(fmt.Sprintf("homepage exported (%d featured, %d latest)", len(home.Featured), len(home.Latest)))
	return home, nil
}

// ExportSitemap writes sitemap.xml listing the site root and every post.
func (e *Exporter) ExportSitemap(ctx context.Context) (n int, err error) {
	ctx, span := tracer.Start(ctx, "export.sitemap")
	defer func() { endSpan(span, err) }()

	posts, err := e.posts.ListPosts(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.write(ctx, SitemapFile, func(w io.Writer) error {
		return writeSitemap(w, e.cfg.URL, posts)
	}); err != nil {
		return 0, err
	}
	e.log.Info(fmt.Sprintf("sitemap exported (%d posts)", len(posts)))
	return len(posts), nil
}

// ExportFeed writes the front-end article feed and the RSS feed.
func (e *Exporter) ExportFeed(ctx context.Context) (n int, err error) {
	ctx, span := tracer.Start(ctx, "export.feed")
	defer func() { endSpan(span, err) }()

	posts, err := e.posts.ListPosts(ctx)
	if err != nil {
		return 0, err
	}
	doc := feed.Document{Articles: make([]feed.Article, 0, len(posts))}
	for _, p := range posts {
		doc.Articles = append(doc.Articles, e.article(p))
	}
	if err := e.write(ctx, ArticlesFile, func(w io.Writer) error {
		return feed.Write(w, doc)
	}); err != nil {
		return 0, err
	}
	if err := e.write(ctx, RSSFile, func(w io.Writer) error {
		return writeRSS(w, e.cfg, posts)
	}); err != nil {
		return 0, err
	}
	e.log.Info(fmt.Sprintf("article feed exported (%d articles)", len(posts)))
	return len(posts), nil
}

// ExportAll exports every post followed by the homepage, sitemap and feeds.
// It stops at the first failure; files written before it stay in place.
func (e *Exporter) ExportAll(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "export.all")
	defer func() { endSpan(span, err) }()

	posts, err := e.posts.ListPosts(ctx)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if _, err := e.ExportPost(ctx, p.ID); err != nil {
			return fmt.Errorf("export %s: %w", p.Slug, err)
		}
	}
	if _, err := e.ExportIndex(ctx); err != nil {
		return err
	}
	if _, err := e.ExportSitemap(ctx); err != nil {
		return err
	}
	_, err = e.ExportFeed(ctx)
	return err
}

// write renders into memory first and then replaces name in one write.
func (e *Exporter) write(ctx context.Context, name string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	full := filepath.Join(e.cfg.OutputDir, filepath.FromSlash(name))
	if err := e.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	if err := afero.WriteFile(e.fs, full, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	trace.SpanFromContext(ctx).AddEvent("file written", trace.WithAttributes(
		attribute.String("file", name),
		attribute.Int("bytes", buf.Len()),
	))
	return nil
}

func (e *Exporter) article(p Post) feed.Article {
	tags := p.TagList()
	if tags == nil {
		tags = []string{}
	}
	var category string
	if cats := p.CategoryList(); len(cats) > 0 {
		category = cats[0]
	}
	return feed.Article{
		ID:       p.ID,
		Slug:     p.Slug,
		Title:    p.Title,
		Excerpt:  excerpt(p),
		Content:  p.Content,
		Category: category,
		Tags:     tags,
		Date:     p.CreatedAt.UTC().Format("2006-01-02"),
		Image:    p.Thumbnail,
		Author:   e.cfg.Author,
		Featured: p.Featured,
	}
}

// excerpt is the meta description, or else the start of the post's text.
func excerpt(p Post) string {
	if p.MetaDescription != "" {
		return p.MetaDescription
	}
	text := strings.Join(strings.Fields(html.UnescapeString(textOnly.Sanitize(strings.ReplaceAll(p.Content, "<", " <")))), " ")
	if utf8.RuneCountInString(text) <= excerptLen {
		return text
	}
	runes := []rune(text)[:excerptLen]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > excerptLen/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// publicPath is the URL path of an exported file under the preview mount.
func publicPath(name string) string {
	return path.Join("/site", name)
}
