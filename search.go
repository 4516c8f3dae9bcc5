package rilis

import "strings"

// SearchPosts returns the posts whose title, content, tags or categories
// contain query, ignoring case. Order is preserved. An empty query matches
// every post.
func SearchPosts(posts []Post, query string) []Post {
	q := strings.ToLower(query)
	var out []Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Content), q) ||
			strings.Contains(strings.ToLower(p.Tags), q) ||
			strings.Contains(strings.ToLower(p.Categories), q) {
			out = append(out, p)
		}
	}
	return out
}
