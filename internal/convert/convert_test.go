package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DispatchesByExtension(t *testing.T) {
	r := NewRegistry()

	assert.NotNil(t, r.For("/docs/a.md"))
	assert.NotNil(t, r.For("/docs/a.markdown"))
	assert.NotNil(t, r.For("/docs/a.TXT"))
	assert.NotNil(t, r.For("/docs/a.srt"))
	assert.Nil(t, r.For("/docs/a.png"))
	assert.Nil(t, r.For("/docs/noext"))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	custom := &PlainText{}
	r.Register(custom)
	assert.Same(t, Converter(custom), r.For("x.txt"))
}

func TestMarkdown_PassesThrough(t *testing.T) {
	got, err := (&Markdown{}).Convert(context.Background(), []byte("# Title\n\nbody\n"))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody\n", got)
}

func TestSRT_DropsIndicesAndTimecodes(t *testing.T) {
	src := `1
00:00:01,000 --> 00:00:03,000
First line of dialogue
continues here

2
00:00:04,000 --> 00:00:06,000
Second cue
`
	got, err := (&SRT{}).Convert(context.Background(), []byte(src))
	require.NoError(t, err)

	assert.Contains(t, got, "First line of dialogue continues here")
	assert.Contains(t, got, "Second cue")
	assert.NotContains(t, got, "-->")
	assert.NotContains(t, got, "00:00:01")
}

func TestSRT_WindowsLineEndings(t *testing.T) {
	src := "1\r\n00:00:01,000 --> 00:00:02,000\r\nHola\r\n"
	got, err := (&SRT{}).Convert(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Contains(t, got, "Hola")
}

func TestSRT_NoTextFails(t *testing.T) {
	_, err := (&SRT{}).Convert(context.Background(), []byte("1\n00:00:01,000 --> 00:00:02,000\n"))
	assert.Error(t, err)
}
