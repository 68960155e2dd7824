package groundextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBPETokenCounter_DefaultsToCl100kBase(t *testing.T) {
	c := NewBPETokenCounter("")
	assert.Equal(t, "cl100k_base", c.encoding)
}

func TestBPETokenCounter_CountsNonZeroForNonEmptyText(t *testing.T) {
	c := NewBPETokenCounter("")
	n := c.Count("the quick brown fox jumps over the lazy dog")
	assert.Greater(t, n, 0)
}

func TestWordCountTokenCounter_CountsWhitespaceSeparatedWords(t *testing.T) {
	c := NewDebugWordCountTokenCounter(nil)
	assert.Equal(t, 4, c.Count("the quick brown fox"))
}
