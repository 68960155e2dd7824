package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundextract/groundextract"
)

// Gemini's generateOne talks to *genai.Client, which has no in-process
// fake; exercising it end-to-end needs live credentials. These tests
// cover the adapter's own logic: construction defaults and the
// uninitialized-client guard.

func TestNewGemini_DefaultsModelName(t *testing.T) {
	g := NewGemini(nil, "", nil)
	assert.Equal(t, "gemini-1.5-pro", g.model)
	assert.Equal(t, "gemini", g.Name())
	assert.True(t, g.SupportsSchema())
}

func TestNewGemini_KeepsSuppliedModelName(t *testing.T) {
	g := NewGemini(nil, "gemini-2.0-flash", nil)
	assert.Equal(t, "gemini-2.0-flash", g.model)
}

func TestGemini_InferBatch_ErrorsWithoutClient(t *testing.T) {
	g := NewGemini(nil, "", nil)
	_, err := g.InferBatch(context.Background(), []string{"x"}, groundextract.Params{})
	require.Error(t, err)
}
