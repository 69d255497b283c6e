package sqlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripLineComment(t *testing.T) {
	out := Strip("SELECT 1 -- trailing note\nFROM t")
	assert.Equal(t, "SELECT 1 \nFROM t", out)
}

func TestStripLineCommentAtEOF(t *testing.T) {
	out := Strip("SELECT 1 -- no newline")
	assert.Equal(t, "SELECT 1 ", out)
}

func TestStripBlockComment(t *testing.T) {
	out := Strip("SELECT/* hidden */1")
	assert.Equal(t, "SELECT 1", out)
}

func TestStripBlockCommentSpansLines(t *testing.T) {
	out := Strip("SELECT 1 /* first\nsecond\nthird */ FROM t")
	assert.Equal(t, "SELECT 1   FROM t", out)
}

func TestStripUnterminatedBlockComment(t *testing.T) {
	out := Strip("SELECT 1 /* runs to the end")
	assert.Equal(t, "SELECT 1  ", out)
}

func TestStripBlockCommentsDoNotNest(t *testing.T) {
	// The outer comment ends at the first */; the tail survives.
	out := Strip("/* a /* b */ c */")
	assert.Equal(t, "  c */", out)
}

func TestStripIsNotStringLiteralAware(t *testing.T) {
	// Documented limitation: a marker inside a quoted literal starts a
	// comment. This behavior is intentional and must not change silently.
	out := Strip("SELECT '--not a comment' FROM t")
	assert.Equal(t, "SELECT '", out)
}
