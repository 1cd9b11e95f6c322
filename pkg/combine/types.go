package combine

import (
	"path/filepath"
	"strings"
)

// Kind identifies which slot of a SourceSet a file belongs to.
type Kind int

const (
	KindMarkup Kind = iota // .html
	KindStyle              // .css
	KindScript             // .js
)

// byteOrderMark is dropped from the start of decoded text.
const byteOrderMark = "\ufeff"

// DecodeText converts file bytes to text, dropping one leading byte order mark.
func DecodeText(data []byte) string {
	return strings.TrimPrefix(string(data), byteOrderMark)
}

// Kinds lists the recognized kinds in slot order.
var Kinds = []Kind{KindMarkup, KindStyle, KindScript}

// KindFromName maps a file name to its kind using the lower-cased final extension.
// The second return value is false for anything other than .html, .css or .js.
func KindFromName(name string) (Kind, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "html":
		return KindMarkup, true
	case "css":
		return KindStyle, true
	case "js":
		return KindScript, true
	default:
		return 0, false
	}
}

// String returns the display name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "HTML"
	case KindStyle:
		return "CSS"
	case KindScript:
		return "JavaScript"
	default:
		return "unknown"
	}
}

// Ext returns the file extension (without the dot) recognized for the kind.
func (k Kind) Ext() string {
	switch k {
	case KindMarkup:
		return "html"
	case KindStyle:
		return "css"
	case KindScript:
		return "js"
	default:
		return ""
	}
}

// Source is the text content of one loaded file.
type Source struct {
	Name    string // Original file name, display only.
	Content string // Decoded text content.
	Size    int64  // Size in bytes as reported by the origin.
}

// SourceSet holds at most one Source per kind.
// A nil field means the slot is empty.
type SourceSet struct {
	Markup *Source
	Style  *Source
	Script *Source
}

// Set stores src in the slot for kind, replacing any previous occupant.
func (s *SourceSet) Set(kind Kind, src Source) {
	switch kind {
	case KindMarkup:
		s.Markup = &src
	case KindStyle:
		s.Style = &src
	case KindScript:
		s.Script = &src
	}
}

// Get returns the occupant of the slot for kind, or nil.
func (s SourceSet) Get(kind Kind) *Source {
	switch kind {
	case KindMarkup:
		return s.Markup
	case KindStyle:
		return s.Style
	case KindScript:
		return s.Script
	default:
		return nil
	}
}

// Remove empties the slot for kind.
func (s *SourceSet) Remove(kind Kind) {
	switch kind {
	case KindMarkup:
		s.Markup = nil
	case KindStyle:
		s.Style = nil
	case KindScript:
		s.Script = nil
	}
}

// Clear empties every slot.
func (s *SourceSet) Clear() {
	*s = SourceSet{}
}

// Empty reports whether no slot is occupied.
func (s SourceSet) Empty() bool {
	return s.Markup == nil && s.Style == nil && s.Script == nil
}

// Entry pairs an occupied slot with its kind.
type Entry struct {
	Kind   Kind
	Source Source
}

// Sources returns the occupied slots in markup, style, script order.
func (s SourceSet) Sources() []Entry {
	var entries []Entry
	for _, kind := range Kinds {
		if src := s.Get(kind); src != nil {
			entries = append(entries, Entry{Kind: kind, Source: *src})
		}
	}
	return entries
}
