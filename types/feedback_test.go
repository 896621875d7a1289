package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackHTML(t *testing.T) {
	out, err := FeedbackHTML("Chào An thân mến,\n\nCon làm **rất tốt**.")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>rất tốt</strong>")
	assert.Contains(t, out, "Chào An thân mến,")
}

func TestFeedbackHTMLHardLineBreaks(t *testing.T) {
	// AI feedback separates points with single newlines
	out, err := FeedbackHTML("điểm một\nđiểm hai")
	require.NoError(t, err)
	assert.Contains(t, out, "<br")
}

func TestFeedbackHTMLEmpty(t *testing.T) {
	out, err := FeedbackHTML("   \n  ")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestFeedbackHTMLStripsScripts(t *testing.T) {
	out, err := FeedbackHTML("hello <script>alert('x')</script> world\n\n<style>body{}</style>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<style")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "world")
}

func TestFeedbackHTMLRejectsBadUTF8(t *testing.T) {
	_, err := FeedbackHTML("bad \xff feedback")
	assert.Error(t, err)
}

func TestFeedbackHTMLLinks(t *testing.T) {
	out, err := FeedbackHTML("see https://example.com/pronunciation")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "<a href="))
}
