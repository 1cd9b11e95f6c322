package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"codejoiner/pkg/combine"
	"codejoiner/pkg/remote"
	"codejoiner/pkg/source"
	"codejoiner/pkg/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu       sync.Mutex
	messages []status.Message
}

func (r *recorder) Report(level status.Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, status.Message{Level: level, Text: text})
}

func (r *recorder) last() status.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return status.Message{}
	}
	return r.messages[len(r.messages)-1]
}

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteText(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type fakePreviewer struct {
	opened []string
	closed int
}

func (p *fakePreviewer) Open(doc string) (string, error) {
	p.opened = append(p.opened, doc)
	return "http://preview.test/1", nil
}

func (p *fakePreviewer) Close() error {
	p.closed++
	return nil
}

type fakeAuth struct {
	signedIn bool
	err      error
	calls    int
}

func (a *fakeAuth) IsAuthenticated() bool { return a.signedIn }

func (a *fakeAuth) SignIn(context.Context) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	a.signedIn = true
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newSession(t *testing.T, opts ...Option) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(rec, zaptest.NewLogger(t), opts...), rec
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1000, "1000 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1234567, "1.18 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
		{5 * 1024 * 1024 * 1024 * 1024, "5120 GB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFileSize(tt.bytes))
		})
	}
}

func TestLoadFiles_ReplacesSlotOfSameKind(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.css", "a{}")
	second := writeFile(t, dir, "b.css", "b{}")
	page := writeFile(t, dir, "index.html", "<p>x</p>")

	s, rec := newSession(t)
	loaded, err := s.LoadFiles(context.Background(), []string{first, page})
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, status.Message{Level: status.Success, Text: "Loaded 2 file(s)"}, rec.last())

	_, err = s.LoadFiles(context.Background(), []string{second})
	require.NoError(t, err)

	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, combine.KindMarkup, files[0].Kind)
	assert.Equal(t, "b.css", files[1].Name)
	assert.Equal(t, "3 Bytes", files[1].SizeText)
}

func TestLoadFiles_UnsupportedOnly(t *testing.T) {
	dir := t.TempDir()
	readme := writeFile(t, dir, "README.md", "# hi")

	s, rec := newSession(t)
	_, err := s.LoadFiles(context.Background(), []string{readme})
	require.ErrorIs(t, err, source.ErrNoRecognizedFiles)
	assert.Equal(t, status.Error, rec.last().Level)
	assert.Equal(t, "Please upload only .html, .css, or .js files", rec.last().Text)
	assert.False(t, s.HasFiles())
}

func TestLoadFiles_ByteOrderMarkIsDropped(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "index.html",
		"\ufeff<!DOCTYPE html><html><head><title>T</title></head><body><p>Hi</p></body></html>")

	s, _ := newSession(t)
	_, err := s.LoadFiles(context.Background(), []string{page})
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(s.Sources().Markup.Content, "\ufeff"))

	doc, err := s.Join()
	require.NoError(t, err)
	assert.Contains(t, doc, "<head>\n    <title>T</title>\n</head>")
	assert.NotContains(t, doc, "\ufeff")
}

func TestLoadFiles_OversizedOnly(t *testing.T) {
	dir := t.TempDir()
	bundle := writeFile(t, dir, "bundle.js", strings.Repeat("x", 3*1024))

	s, rec := newSession(t, WithSourceOptions(source.Options{MaxFileSizeKB: 2, MaxWorkers: 1}))
	_, err := s.LoadFiles(context.Background(), []string{bundle})

	var skipped *source.SkippedError
	require.ErrorAs(t, err, &skipped)
	assert.NotErrorIs(t, err, source.ErrNoRecognizedFiles)
	assert.Equal(t, status.Message{Level: status.Error, Text: "Error loading files: bundle.js exceeds the 2 KB limit"}, rec.last())
	assert.False(t, s.HasFiles())
}

func TestLoadFiles_NoSizeLimitByDefault(t *testing.T) {
	dir := t.TempDir()
	bundle := writeFile(t, dir, "bundle.js", strings.Repeat("x", 1300*1024))

	s, _ := newSession(t)
	_, err := s.LoadFiles(context.Background(), []string{bundle})
	require.NoError(t, err)
	require.NotNil(t, s.Sources().Script)
	assert.Equal(t, "1.27 MB", s.Files()[0].SizeText)
}

func TestJoin_StoresDocument(t *testing.T) {
	s, rec := newSession(t)
	s.SetSource(combine.KindStyle, combine.Source{Name: "s.css", Content: "p{}"})

	doc, err := s.Join()
	require.NoError(t, err)
	assert.Equal(t, doc, s.Document())
	assert.Contains(t, doc, "<style>\n        p{}\n    </style>")
	assert.Equal(t, status.Message{Level: status.Success, Text: "Files successfully combined into single HTML file!"}, rec.last())
}

func TestJoin_FailureKeepsPreviousDocument(t *testing.T) {
	s, rec := newSession(t)
	s.SetSource(combine.KindMarkup, combine.Source{Name: "ok.html", Content: "<p>ok</p>"})
	doc, err := s.Join()
	require.NoError(t, err)

	s.SetSource(combine.KindMarkup, combine.Source{Name: "bad.html", Content: "\xff"})
	_, err = s.Join()
	require.ErrorIs(t, err, combine.ErrParse)
	assert.Equal(t, status.Error, rec.last().Level)
	assert.True(t, strings.HasPrefix(rec.last().Text, "Error combining files: "))
	assert.Equal(t, doc, s.Document())
}

func TestExports_RequireDocument(t *testing.T) {
	clip := &fakeClipboard{}
	prev := &fakePreviewer{}
	dir := t.TempDir()
	s, rec := newSession(t, WithClipboard(clip), WithPreviewer(prev))

	require.ErrorIs(t, s.Copy(), ErrNoCode)
	assert.Equal(t, "No code to copy. Please join files first.", rec.last().Text)

	_, err := s.Download(dir)
	require.ErrorIs(t, err, ErrNoCode)
	assert.Equal(t, "No code to download. Please join files first.", rec.last().Text)

	_, err = s.Preview()
	require.ErrorIs(t, err, ErrNoCode)

	_, err = s.SaveRemote(context.Background())
	require.ErrorIs(t, err, ErrNoCode)
	assert.Equal(t, "No code to save. Please join files first.", rec.last().Text)

	assert.Empty(t, clip.text)
	assert.Empty(t, prev.opened)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExports(t *testing.T) {
	clip := &fakeClipboard{}
	prev := &fakePreviewer{}
	dir := t.TempDir()
	s, rec := newSession(t, WithClipboard(clip), WithPreviewer(prev))
	s.SetSource(combine.KindScript, combine.Source{Name: "a.js", Content: "go()"})
	doc, err := s.Join()
	require.NoError(t, err)

	require.NoError(t, s.Copy())
	assert.Equal(t, doc, clip.text)
	assert.Equal(t, "Code copied to clipboard!", rec.last().Text)

	written, err := s.Download(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index.html"), written)
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
	assert.Equal(t, "index.html downloaded successfully!", rec.last().Text)

	url, err := s.Preview()
	require.NoError(t, err)
	assert.Equal(t, "http://preview.test/1", url)
	assert.Equal(t, []string{doc}, prev.opened)

	require.NoError(t, s.ClosePreview())
	assert.Equal(t, 1, prev.closed)
}

func TestCopy_Failure(t *testing.T) {
	clip := &fakeClipboard{err: errors.New("no display")}
	s, rec := newSession(t, WithClipboard(clip))
	_, err := s.Join()
	require.NoError(t, err)

	require.Error(t, s.Copy())
	assert.Equal(t, status.Message{Level: status.Error, Text: "Failed to copy to clipboard"}, rec.last())
}

func TestRemoveAndClear(t *testing.T) {
	s, rec := newSession(t)
	s.SetSource(combine.KindMarkup, combine.Source{Name: "a.html"})
	s.SetSource(combine.KindScript, combine.Source{Name: "a.js"})
	_, err := s.Join()
	require.NoError(t, err)

	s.Remove(combine.KindScript)
	assert.Equal(t, "Removed a.js.", rec.last().Text)
	require.Len(t, s.Files(), 1)

	s.Clear()
	assert.Equal(t, status.Message{Level: status.Info, Text: "All files cleared."}, rec.last())
	assert.False(t, s.HasFiles())
	assert.Empty(t, s.Document())
}

func remoteSession(t *testing.T, picker remote.FolderPicker, auth remote.Authenticator) (*Session, *recorder, remote.Storage) {
	t.Helper()
	store, err := remote.NewDirStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	s, rec := newSession(t, WithRemote(&remote.Backend{Auth: auth, Picker: picker, Storage: store}))
	return s, rec, store
}

func TestLoadRemote(t *testing.T) {
	auth := &fakeAuth{}
	s, rec, store := remoteSession(t, remote.StaticPicker{Folder: "/site"}, auth)
	ctx := context.Background()
	require.NoError(t, store.WriteFile(ctx, "/site/index.html", []byte("<p>hi</p>")))
	require.NoError(t, store.WriteFile(ctx, "/site/app.js", []byte("run()")))
	require.NoError(t, store.WriteFile(ctx, "/site/notes.txt", []byte("skip")))
	require.NoError(t, store.WriteFile(ctx, "/site/lib/other.js", []byte("nested")))

	n, err := s.LoadRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, status.Message{Level: status.Success, Text: `Loaded 2 file(s) from folder: "/site"`}, rec.last())

	set := s.Sources()
	require.NotNil(t, set.Script)
	assert.Equal(t, "run()", set.Script.Content)
	assert.Equal(t, "index.html", set.Markup.Name)
}

func TestLoadRemote_Cancelled(t *testing.T) {
	s, rec, _ := remoteSession(t, remote.StaticPicker{}, remote.Open{})

	_, err := s.LoadRemote(context.Background())
	require.True(t, remote.IsCancelled(err))
	assert.Equal(t, status.Message{Level: status.Info, Text: "Folder selection cancelled by user."}, rec.last())
	assert.False(t, s.HasFiles())
}

func TestLoadRemote_SignInCancelled(t *testing.T) {
	auth := &fakeAuth{err: errors.New("popup closed: user canceled")}
	s, rec, _ := remoteSession(t, remote.StaticPicker{Folder: "/"}, auth)

	_, err := s.LoadRemote(context.Background())
	require.Error(t, err)
	assert.Equal(t, status.Info, rec.last().Level)
}

func TestLoadRemote_FailureInFolderNamedCancelled(t *testing.T) {
	s, rec, _ := remoteSession(t, remote.StaticPicker{Folder: "/cancelled-drafts"}, remote.Open{})

	_, err := s.LoadRemote(context.Background())
	require.ErrorIs(t, err, remote.ErrNotFound)
	assert.False(t, remote.IsCancelled(err))
	assert.Equal(t, status.Error, rec.last().Level)
	assert.True(t, strings.HasPrefix(rec.last().Text, "Error loading folder: "))
}

func TestLoadRemote_ReadsDropByteOrderMark(t *testing.T) {
	s, _, store := remoteSession(t, remote.StaticPicker{Folder: "/site"}, remote.Open{})
	require.NoError(t, store.WriteFile(context.Background(), "/site/app.css", []byte("\ufeffp{}")))

	_, err := s.LoadRemote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p{}", s.Sources().Style.Content)
}

func TestLoadRemote_NoRecognizedFiles(t *testing.T) {
	s, rec, store := remoteSession(t, remote.StaticPicker{Folder: "/docs"}, remote.Open{})
	require.NoError(t, store.WriteFile(context.Background(), "/docs/readme.md", []byte("x")))

	_, err := s.LoadRemote(context.Background())
	require.ErrorIs(t, err, source.ErrNoRecognizedFiles)
	assert.Equal(t, status.Message{Level: status.Error, Text: "No .html, .css, or .js files found in the selected folder."}, rec.last())
}

func TestLoadRemote_NotConfigured(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.LoadRemote(context.Background())
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestSaveRemote(t *testing.T) {
	s, rec, store := remoteSession(t, remote.StaticPicker{Folder: "/out"}, remote.Open{})
	s.SetSource(combine.KindStyle, combine.Source{Name: "a.css", Content: "a{}"})
	doc, err := s.Join()
	require.NoError(t, err)

	saved, err := s.SaveRemote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/out/index.html", saved)
	assert.Equal(t, `Combined file saved successfully to: "/out/index.html"`, rec.last().Text)

	data, err := store.ReadFile(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestSaveRemote_Cancelled(t *testing.T) {
	s, rec, _ := remoteSession(t, remote.StaticPicker{}, remote.Open{})
	_, err := s.Join()
	require.NoError(t, err)

	_, err = s.SaveRemote(context.Background())
	require.True(t, remote.IsCancelled(err))
	assert.Equal(t, status.Message{Level: status.Info, Text: "File save cancelled by user."}, rec.last())
}

func TestAddSource(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.AddSource("page.html", "<p>x</p>"))
	err := s.AddSource("notes.txt", "x")
	require.ErrorIs(t, err, source.ErrNoRecognizedFiles)
	require.Len(t, s.Files(), 1)
	assert.Equal(t, int64(8), s.Files()[0].Size)
}
