package bundle

import (
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleElementMembers(t *testing.T) {
	b := NewBundleElement("ruby", "/app/ruby/bundle.star", "/app/ruby", Application)
	require.True(t, b.IsEmpty())

	cmd := NewCommandElement("build", "/app/ruby/commands/build.star")
	menu := NewMenuElement("Ruby", "/app/ruby/bundle.star")
	snip := NewSnippetElement("def", "/app/ruby/snippets/def.star")

	b.AddElement(cmd)
	b.AddElement(menu)
	b.AddElement(snip)
	b.AddElement(cmd)

	assert.False(t, b.IsEmpty())
	assert.Len(t, b.Commands(), 1)
	assert.Len(t, b.Members(), 3)
	assert.Equal(t, b.ID(), cmd.OwnerID())
	assert.Equal(t, b.ID(), menu.OwnerID())
	assert.Equal(t, b.ID(), snip.OwnerID())

	assert.True(t, b.RemoveElement(cmd))
	assert.Equal(t, "", cmd.OwnerID())
	assert.False(t, b.RemoveElement(cmd))
	assert.True(t, b.RemoveElement(menu))
	assert.True(t, b.RemoveElement(snip))
	assert.True(t, b.IsEmpty())
}

func TestBundleElementClearMetadata(t *testing.T) {
	b := NewBundleElement("ruby", "/app/ruby/bundle.star", "/app/ruby", Application)
	b.SetMetadata(Metadata{Author: "someone", License: "MIT"})
	b.SetMarker(FoldingStart, "source.ruby", regexp2.MustCompile(`do$`, regexp2.None))
	b.AddFileType("*.rb", "source.ruby")
	b.AddElement(NewCommandElement("build", "/app/ruby/commands/build.star"))

	b.ClearMetadata()

	assert.Equal(t, Metadata{}, b.Metadata())
	assert.Empty(t, b.Markers(FoldingStart))
	assert.Empty(t, b.FileTypes())
	assert.Equal(t, "ruby", b.DisplayName())
	assert.Equal(t, "/app/ruby", b.BundleDirectory())
	assert.False(t, b.IsEmpty())
}

func TestBundleElementSetMarkerReplaces(t *testing.T) {
	b := NewBundleElement("ruby", "/app/ruby/bundle.star", "/app/ruby", Application)
	b.SetMarker(DecreaseIndent, "source.ruby", regexp2.MustCompile(`a`, regexp2.None))
	b.SetMarker(DecreaseIndent, "text.html", regexp2.MustCompile(`b`, regexp2.None))
	b.SetMarker(DecreaseIndent, "source.ruby", regexp2.MustCompile(`c`, regexp2.None))

	markers := b.Markers(DecreaseIndent)
	require.Len(t, markers, 2)
	assert.Equal(t, "c", markers[0].Value.String())
	assert.Equal(t, "text.html", markers[1].Selector.String())
}

func TestPrecedence(t *testing.T) {
	for _, p := range Precedences {
		got, ok := ParsePrecedence(p.String())
		require.True(t, ok)
		assert.Equal(t, p, got)
	}
	assert.True(t, Application < User && User < Project)
	_, ok := ParsePrecedence("system")
	assert.False(t, ok)
}
