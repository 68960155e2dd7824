package groundextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAligner_ExactMatch(t *testing.T) {
	source := "The system shall process 100 transactions per second."
	extractions := []Extraction{
		{Class: "rate", Text: "100 transactions per second"},
	}

	a := NewAligner(DefaultAlignmentConfig())
	a.AlignExtractions(extractions, source, 0)

	assert.Equal(t, AlignmentExact, extractions[0].Status)
	assert.Equal(t, "100 transactions per second", source[extractions[0].Interval.Start:extractions[0].Interval.End])
}

func TestAligner_DuplicateTextGetsDistinctOffsets(t *testing.T) {
	source := "Alice met Bob. Later, Alice called Bob again."
	extractions := []Extraction{
		{Class: "person", Text: "Alice"},
		{Class: "person", Text: "Alice"},
	}

	a := NewAligner(DefaultAlignmentConfig())
	a.AlignExtractions(extractions, source, 0)

	assert.NotEqual(t, extractions[0].Interval.Start, extractions[1].Interval.Start)
	assert.True(t, extractions[1].Interval.Start > extractions[0].Interval.Start)
}

func TestAligner_CaseInsensitiveByDefault(t *testing.T) {
	source := "THE QUICK BROWN FOX jumps over the lazy dog."
	extractions := []Extraction{{Class: "subject", Text: "the quick brown fox"}}

	a := NewAligner(DefaultAlignmentConfig())
	a.AlignExtractions(extractions, source, 0)

	assert.Equal(t, AlignmentExact, extractions[0].Status)
}

func TestAligner_FuzzyMatchOnMinorMutation(t *testing.T) {
	source := "Authentication tokens shall expire after 30 minutes of inactivity."
	extractions := []Extraction{
		{Class: "policy", Text: "Authentication tokens shall expire after 30 minutes extra"},
	}

	cfg := DefaultAlignmentConfig()
	cfg.FuzzyAlignmentThreshold = 0.5
	a := NewAligner(cfg)
	a.AlignExtractions(extractions, source, 0)

	assert.NotEqual(t, AlignmentNone, extractions[0].Status)
	assert.NotNil(t, extractions[0].Interval)
}

func TestAligner_NoMatchWhenFuzzyDisabled(t *testing.T) {
	source := "Database backups shall be performed every 6 hours."
	extractions := []Extraction{
		{Class: "unrelated", Text: "something entirely absent from source"},
	}

	cfg := DefaultAlignmentConfig()
	cfg.EnableFuzzyAlignment = false
	a := NewAligner(cfg)
	a.AlignExtractions(extractions, source, 0)

	assert.Equal(t, AlignmentNone, extractions[0].Status)
	assert.Nil(t, extractions[0].Interval)
}

func TestAligner_BaseOffsetTranslatesToDocumentAbsolute(t *testing.T) {
	source := "total: $19.99"
	extractions := []Extraction{{Class: "amount", Text: "$19.99"}}

	a := NewAligner(DefaultAlignmentConfig())
	a.AlignExtractions(extractions, source, 1000)

	assert.Equal(t, 1007, extractions[0].Interval.Start)
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	b := map[string]struct{}{"b": {}, "c": {}, "d": {}}
	assert.InDelta(t, 0.5, jaccard(a, b), 0.0001)

	empty := map[string]struct{}{}
	assert.Equal(t, 1.0, jaccard(empty, empty))
}
