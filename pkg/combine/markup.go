// File: pkg/combine/markup.go
package combine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrParse is returned when markup cannot be parsed as an HTML document.
var ErrParse = errors.New("markup could not be parsed as an HTML document")

var (
	headSelector = cascadia.MustCompile("html > head")
	bodySelector = cascadia.MustCompile("html > body, html > frameset")
)

// ExtractHeadBody parses markup as a complete HTML document and returns the
// serialized inner content of its head and body elements.
// Parsing is done with scripting disabled and never fetches anything.
func ExtractHeadBody(markup string) (head, body string, err error) {
	if !utf8.ValidString(markup) {
		return "", "", fmt.Errorf("%w: invalid UTF-8", ErrParse)
	}
	if strings.IndexByte(markup, 0) >= 0 {
		return "", "", fmt.Errorf("%w: NUL byte in input", ErrParse)
	}

	markup = strings.TrimPrefix(markup, byteOrderMark)

	doc, err := html.ParseWithOptions(strings.NewReader(markup), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	if n := headSelector.MatchFirst(doc); n != nil {
		head = InnerHTML(n)
	}
	if n := bodySelector.MatchFirst(doc); n != nil {
		body = InnerHTML(n)
	}
	return head, body, nil
}
