package rilis

import (
	"context"
	"strconv"
	"strings"
)

// Slugify converts a title to a URL-safe slug: lowercase ASCII letters and
// digits, with every other run of characters collapsed into one hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// reservedSlugs would make a post page collide with a site-wide export
// (index.html).
var reservedSlugs = map[string]bool{
	"index": true,
}

// SlugChecker reports whether a slug is in use by a post other than
// excludeID.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
}

// slugCandidate returns the n-th candidate for base: base, base-1, base-2, …
// An empty base yields 1, 2, … so the result is never empty.
func slugCandidate(base string, n int) string {
	if base == "" {
		return strconv.Itoa(n + 1)
	}
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// AllocateSlug derives a slug from title and probes candidates one at a time
// until checker reports one unused. The result is only free at the moment of
// the check; callers must insert through a store that enforces uniqueness
// and allocate again on ErrSlugTaken.
func AllocateSlug(ctx context.Context, checker SlugChecker, title string, excludeID int64) (string, error) {
	base := Slugify(title)
	for n := 0; ; n++ {
		candidate := slugCandidate(base, n)
		if reservedSlugs[candidate] {
			continue
		}
		taken, err := checker.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}
