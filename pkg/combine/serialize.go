// File: pkg/combine/serialize.go
package combine

import (
	"strings"

	"golang.org/x/net/html"
)

// voidElements have no end tag and no children.
var voidElements = map[string]bool{
	"area": true, "base": true, "basefont": true, "bgsound": true, "br": true,
	"col": true, "embed": true, "frame": true, "hr": true, "img": true,
	"input": true, "keygen": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

// rawTextElements have their text children written without escaping.
// noscript is absent because documents are parsed with scripting disabled.
var rawTextElements = map[string]bool{
	"style": true, "script": true, "xmp": true, "iframe": true,
	"noembed": true, "noframes": true, "plaintext": true,
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "\u00a0", "&nbsp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "\u00a0", "&nbsp;", `"`, "&quot;")
)

// InnerHTML serializes the children of n using the HTML fragment serialization
// rules, matching what a browser returns from element.innerHTML.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(&b, c)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		writeElement(b, n)
	case html.TextNode:
		if p := n.Parent; p != nil && p.Type == html.ElementNode && p.Namespace == "" && rawTextElements[p.Data] {
			b.WriteString(n.Data)
			return
		}
		b.WriteString(textEscaper.Replace(n.Data))
	case html.CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
	case html.DoctypeNode:
		b.WriteString("<!DOCTYPE ")
		b.WriteString(n.Data)
		b.WriteString(">")
	}
}

func writeElement(b *strings.Builder, n *html.Node) {
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		b.WriteString(attrName(a))
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if n.Namespace == "" && voidElements[n.Data] {
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(b, c)
	}

	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
}

// attrName returns the serialized name of a, including the prefix of foreign attributes.
func attrName(a html.Attribute) string {
	switch a.Namespace {
	case "":
		return a.Key
	case "xmlns":
		if a.Key == "xmlns" {
			return a.Key
		}
		return "xmlns:" + a.Key
	default:
		return a.Namespace + ":" + a.Key
	}
}
