package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	s := "short output"
	assert.Equal(t, s, TruncateOutput(s))
}

func TestTruncateOutputOverLimit(t *testing.T) {
	s := strings.Repeat("a", maxOutputLen+100)
	out := TruncateOutput(s)
	assert.LessOrEqual(t, len(out), maxOutputLen)
	assert.Contains(t, out, "truncated")
}

func TestTruncateParentSnippetOverLimit(t *testing.T) {
	s := strings.Repeat("b", maxParentSnippet+50)
	out := TruncateParentSnippet(s)
	assert.LessOrEqual(t, len(out), maxParentSnippet)
	assert.Contains(t, out, "truncated")
}
