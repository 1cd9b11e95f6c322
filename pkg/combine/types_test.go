package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromName(t *testing.T) {
	tests := []struct {
		name   string
		want   Kind
		wantOK bool
	}{
		{"index.html", KindMarkup, true},
		{"INDEX.HTML", KindMarkup, true},
		{"styles/site.min.css", KindStyle, true},
		{"app.JS", KindScript, true},
		{"page.htm", 0, false},
		{"module.mjs", 0, false},
		{"README", 0, false},
		{"html", 0, false},
		{"js", 0, false},
		{"archive.html.gz", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KindFromName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "HTML", KindMarkup.String())
	assert.Equal(t, "CSS", KindStyle.String())
	assert.Equal(t, "JavaScript", KindScript.String())
	assert.Equal(t, "js", KindScript.Ext())
}

func TestSourceSet_SetReplacesOnlyItsSlot(t *testing.T) {
	var set SourceSet
	set.Set(KindMarkup, Source{Name: "a.html", Content: "<p>a</p>"})
	set.Set(KindStyle, Source{Name: "a.css", Content: "a{}"})
	set.Set(KindScript, Source{Name: "a.js", Content: "a()"})

	set.Set(KindStyle, Source{Name: "b.css", Content: "b{}"})

	assert.Equal(t, "b.css", set.Style.Name)
	assert.Equal(t, "b{}", set.Style.Content)
	assert.Equal(t, "a.html", set.Markup.Name)
	assert.Equal(t, "a.js", set.Script.Name)
}

func TestSourceSet_RemoveAndClear(t *testing.T) {
	var set SourceSet
	assert.True(t, set.Empty())

	set.Set(KindMarkup, Source{Name: "a.html"})
	set.Set(KindScript, Source{Name: "a.js"})
	assert.False(t, set.Empty())

	set.Remove(KindMarkup)
	assert.Nil(t, set.Get(KindMarkup))
	assert.NotNil(t, set.Get(KindScript))

	set.Clear()
	assert.True(t, set.Empty())
}

func TestSourceSet_SourcesOrder(t *testing.T) {
	var set SourceSet
	set.Set(KindScript, Source{Name: "a.js"})
	set.Set(KindMarkup, Source{Name: "a.html"})

	entries := set.Sources()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, KindMarkup, entries[0].Kind)
		assert.Equal(t, KindScript, entries[1].Kind)
	}
}
