package sink

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClipboard_SystemClipboard(t *testing.T) {
	var got string
	c := &Clipboard{
		write:  func(s string) error { got = s; return nil },
		logger: zaptest.NewLogger(t),
	}

	require.NoError(t, c.WriteText("<html></html>"))
	assert.Equal(t, "<html></html>", got)
}

func TestClipboard_FallsBackToTerminal(t *testing.T) {
	var tty bytes.Buffer
	c := &Clipboard{
		write:      func(string) error { return errors.New("no xclip") },
		fallback:   &tty,
		fallbackOK: true,
		logger:     zaptest.NewLogger(t),
	}

	require.NoError(t, c.WriteText("hi"))
	assert.Equal(t, "\x1b]52;c;aGk=\a", tty.String())
}

func TestClipboard_UnavailableEverywhere(t *testing.T) {
	c := &Clipboard{
		unsupported: true,
		fallback:    &bytes.Buffer{},
		fallbackOK:  false,
		logger:      zaptest.NewLogger(t),
	}

	assert.ErrorIs(t, c.WriteText("hi"), ErrClipboardUnavailable)
}

func TestDownload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := Download(dir, "", "<html></html>", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestPreviewer_ServesSandboxedDocumentUntilClosed(t *testing.T) {
	p := NewPreviewer("", zaptest.NewLogger(t))
	defer func() { _ = p.Close() }()

	url, err := p.Open("<p>preview</p>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:"))

	resp, err := http.Get(url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>preview</p>", string(body))
	assert.Equal(t, SandboxPolicy, resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = http.Get(url)
	assert.Error(t, err)
	http.DefaultClient.CloseIdleConnections()
}

func TestPreviewer_UnknownDocument(t *testing.T) {
	p := NewPreviewer("", nil)
	defer func() { _ = p.Close() }()

	url, err := p.Open("x")
	require.NoError(t, err)

	resp, err := http.Get(url[:strings.LastIndex(url, "/")] + "/01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.NoError(t, err)
	_ = resp.Body.Close()
	http.DefaultClient.CloseIdleConnections()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
