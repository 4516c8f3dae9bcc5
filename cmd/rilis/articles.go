package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/afero"

	"github.com/eringen/rilis"
	"github.com/eringen/rilis/feed"
)

func runArticles(args []string) error {
	fset := flag.NewFlagSet("articles", flag.ContinueOnError)
	file := fset.String("file", filepath.Join("public", filepath.FromSlash(rilis.ArticlesFile)), "path to the exported article feed")
	query := fset.String("q", "", "search title, excerpt, content, category and tags")
	tag := fset.String("tag", "", "filter by tag")
	category := fset.String("category", "", "filter by category (\"all\" for every article)")
	featured := fset.Bool("featured", false, "only featured articles")
	latest := fset.Int("latest", -1, "newest n articles")
	related := fset.Int64("related", 0, "recommend articles for the given id")
	asJSON := fset.Bool("json", false, "print the matches as JSON")
	if err := fset.Parse(args); err != nil {
		return err
	}

	snap, err := feed.LoadFile(afero.NewOsFs(), *file)
	if err != nil {
		return err
	}

	var out []feed.Article
	switch {
	case *query != "":
		out = snap.Search(*query)
	case *tag != "":
		out = snap.FilterByTag(*tag)
	case *category != "":
		out = snap.FilterByCategory(*category)
	case *featured:
		out = snap.Featured()
	case *related != 0:
		n := *latest
		if n < 0 {
			n = 3
		}
		out = snap.Recommended(*related, n)
	default:
		out = snap.Latest(*latest)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSLUG\tTITLE")
	for _, a := range out {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.Date, a.Slug, a.Title)
	}
	return tw.Flush()
}
