package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codejoiner/pkg/combine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIgnore_Patterns(t *testing.T) {
	gi := NewIgnore(nil)
	gi.CompileIgnoreLines(
		"# comment",
		"",
		"node_modules/",
		"*.min.js",
		"/dist",
		"docs/**/draft.html",
		"!keep.min.js",
		"b?ild",
	)
	assert.Equal(t, 6, gi.Len())

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules", true},
		{"web/node_modules/lib/a.js", true},
		{"app.min.js", true},
		{"vendor/jquery.min.js", true},
		{"keep.min.js", false},
		{"app.js", false},
		{"dist", true},
		{"dist/index.html", true},
		{"web/dist/index.html", false},
		{"docs/draft.html", true},
		{"docs/a/b/draft.html", true},
		{"docs/final.html", false},
		{"build", true},
		{"bild", false},
		{"./node_modules/", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, gi.MatchesPath(tt.path))
		})
	}
}

func TestIgnore_MatchedPatternIsReported(t *testing.T) {
	gi := NewIgnore(nil)
	gi.CompileIgnoreLines("*.css", "!site.css")

	matched, pattern := gi.MatchesPathWithPattern("site.css")
	assert.False(t, matched)
	require.NotNil(t, pattern)
	assert.True(t, pattern.Negate)
	assert.Equal(t, 2, pattern.LineNo)
}

func TestLoadIgnoreFiles_NearestFileWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, IgnoreFileName, "*.css\n")
	sub := filepath.Join(root, "site")
	writeFile(t, sub, IgnoreFileName, "!theme.css\n")

	gi, err := LoadIgnoreFiles("", sub, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, gi.MatchesPath("other.css"))
	assert.False(t, gi.MatchesPath("theme.css"))
}

func TestLoadIgnoreFiles_GlobalFile(t *testing.T) {
	dir := t.TempDir()
	global := writeFile(t, dir, "global.ignore", "secret/\n")

	gi, err := LoadIgnoreFiles(global, dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, gi.MatchesPath("secret/x.js"))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	html := writeFile(t, dir, "index.html", "<p>x</p>")
	css := writeFile(t, dir, "assets/site.css", "p{}")
	writeFile(t, dir, "assets/vendor.min.js", "x()")
	writeFile(t, dir, "notes.txt", "skip me silently")
	writeFile(t, dir, "node_modules/lib.js", "lib()")
	writeFile(t, dir, "big.js", stringOfSize(3*1024))
	writeFile(t, dir, "blob.js", "a\x00b")
	readme := writeFile(t, t.TempDir(), "README.md", "# hi")

	gi := NewIgnore(nil)
	gi.CompileIgnoreLines("node_modules/", "*.min.js")

	opts := Options{MaxFileSizeKB: 2}
	collected, err := Collect([]string{dir, readme}, gi, opts, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{html, css}, collected.Recognized)
	assert.Equal(t, []string{readme}, collected.Unsupported)
	assert.Len(t, collected.Binary, 1)
	assert.Len(t, collected.Oversized, 1)
}

func stringOfSize(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestLoad_PreservesInputOrder(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.css", "b.js", "c.html", "d.css", "e.js"} {
		files = append(files, writeFile(t, dir, name, "content of "+name))
	}

	loaded, err := Load(context.Background(), files, 3, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, loaded, len(files))
	for i, l := range loaded {
		assert.Equal(t, files[i], l.Path)
		assert.Equal(t, "content of "+filepath.Base(files[i]), l.Source.Content)
		assert.Equal(t, int64(len(l.Source.Content)), l.Source.Size)
	}
}

func TestLoad_ReportsFailuresAndKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.css", "p{}")
	missing := filepath.Join(dir, "missing.js")

	loaded, err := Load(context.Background(), []string{good, missing}, 2, zaptest.NewLogger(t))
	require.Error(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "good.css", loaded[0].Source.Name)
}

func TestApply_LaterFileWins(t *testing.T) {
	var set combine.SourceSet
	set.Set(combine.KindMarkup, combine.Source{Name: "index.html", Content: "<p>keep</p>"})

	n := Apply(&set, []Loaded{
		{Kind: combine.KindStyle, Source: combine.Source{Name: "first.css", Content: "a{}"}},
		{Kind: combine.KindStyle, Source: combine.Source{Name: "second.css", Content: "b{}"}},
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, "second.css", set.Style.Name)
	assert.Equal(t, "<p>keep</p>", set.Markup.Content)
	assert.Nil(t, set.Script)
}

func TestLoadPaths_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", "hello")

	_, _, err := LoadPaths(context.Background(), []string{txt}, DefaultOptions(), zaptest.NewLogger(t))
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, []string{txt}, unsupported.Files)
	assert.ErrorIs(t, err, ErrNoRecognizedFiles)

	_, _, err = LoadPaths(context.Background(), []string{t.TempDir()}, DefaultOptions(), zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoRecognizedFiles)
}

func TestLoadPaths_LoadsRecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	css := writeFile(t, dir, "site.css", "p{}")
	txt := writeFile(t, dir, "notes.txt", "hello")

	loaded, collected, err := LoadPaths(context.Background(), []string{css, txt}, DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, combine.KindStyle, loaded[0].Kind)
	assert.Equal(t, []string{txt}, collected.Unsupported)
}

func TestIsBinaryContent(t *testing.T) {
	assert.False(t, isBinaryContent(nil))
	assert.False(t, isBinaryContent([]byte("body { content: \"é\"; }\n")))
	assert.True(t, isBinaryContent([]byte{0x89, 'P', 'N', 'G', 0x00}))
	assert.True(t, isBinaryContent([]byte{1, 2, 3, 4, 5, 'a'}))
}
