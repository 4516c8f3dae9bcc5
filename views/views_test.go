package views

import (
	"bytes"
	"context"
	"html/template"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct{ Name, Description string }

func TestDefaultParsesEveryPage(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)
	for _, name := range []string{
		"login.html", "posts.html", "post_form.html", "images.html",
		"message.html", "notfound.html", "error.html",
		"post.html", "index.html", "search.html",
	} {
		assert.True(t, v.Has(name), name)
	}
	assert.False(t, v.Has("missing.html"))
}

func TestComponentRendersLayout(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)

	data := struct {
		Site     site
		LoggedIn bool
		CSRF     string
		Error    string
	}{Site: site{Name: "Notes"}, CSRF: "tok<en>", Error: "Invalid credentials"}

	var buf bytes.Buffer
	require.NoError(t, v.Component("login.html", data).Render(context.Background(), &buf))
	out := buf.String()
	assert.Contains(t, out, "<title>Log in · Notes CMS</title>")
	assert.Contains(t, out, `value="tok&lt;en&gt;"`)
	assert.Contains(t, out, "Invalid credentials")
	assert.NotContains(t, out, `href="/logout"`)
}

func TestComponentUnknownPage(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)
	var buf bytes.Buffer
	err = v.Component("nope.html", nil).Render(context.Background(), &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestComponentFailureWritesNothing(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/layouts/base.html": {Data: []byte(`{{define "base"}}<p>{{template "body" .}}</p>{{end}}`)},
		"templates/pages/broken.html": {Data: []byte(`{{template "base" .}}{{define "body"}}{{.Missing.Field}}{{end}}`)},
	}
	v, err := New(fsys)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = v.Component("broken.html", struct{}{}).Render(context.Background(), &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestDateFuncs(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 0, 0, 0, time.FixedZone("X", 3600))
	var buf bytes.Buffer
	tmpl := template.Must(template.New("t").Funcs(funcs).Parse(`{{date .}}|{{isodate .}}`))
	require.NoError(t, tmpl.Execute(&buf, at))
	assert.Equal(t, "March 5, 2024|2024-03-05T13:00:00Z", buf.String())
}
