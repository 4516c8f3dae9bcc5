package rilis

import (
	"strings"
	"time"
)

// Post is the core content record. Categories and Tags are stored as
// comma-joined lists.
type Post struct {
	ID              int64     `db:"id"`
	Title           string    `db:"title"`
	Content         string    `db:"content"`
	Slug            string    `db:"slug"`
	Thumbnail       string    `db:"thumbnail"`
	Categories      string    `db:"categories"`
	Tags            string    `db:"tags"`
	MetaTitle       string    `db:"meta_title"`
	MetaDescription string    `db:"meta_description"`
	MetaKeywords    string    `db:"meta_keywords"`
	CreatedAt       time.Time `db:"created_at"`
	Featured        bool      `db:"featured"`
}

// TagList returns the post's tags as a slice.
func (p Post) TagList() []string {
	return SplitList(p.Tags)
}

// CategoryList returns the post's categories as a slice.
func (p Post) CategoryList() []string {
	return SplitList(p.Categories)
}

// User is an operator account.
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// PostInput carries the operator-editable fields of a post.
type PostInput struct {
	Title           string
	Content         string
	Thumbnail       string
	Categories      []string
	Tags            []string
	MetaTitle       string
	MetaDescription string
	MetaKeywords    string
	Featured        bool
}

// SplitList splits a comma-joined list, trimming blanks.
func SplitList(s string) []string {
	return FilterEmpty(strings.Split(s, ","))
}

// JoinList joins values into the stored comma-joined form.
func JoinList(vals []string) string {
	return strings.Join(FilterEmpty(vals), ",")
}
