package groundextract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundextract/groundextract"
	"github.com/groundextract/groundextract/providers"
)

func TestRunMultiPass_DisabledFallsBackToSinglePass(t *testing.T) {
	fake := providers.NewFake().Enqueue(`[{"class": "organization", "text": "Acme Corp"}]`)
	an, err := groundextract.NewAnnotator("task", newTestExamples(),
		groundextract.WithProvider(fake),
		groundextract.WithChunkingStrategy(groundextract.StrategyFixed),
	)
	require.NoError(t, err)

	doc := groundextract.NewDocument("Acme Corp is growing fast.", "", nil)
	result, err := an.RunMultiPass(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, result.Extractions, 1)
	assert.Len(t, fake.Calls(), 1)
}

func TestRunMultiPass_ReprocessesUnderYieldingChunkThenConverges(t *testing.T) {
	fake := providers.NewFake().
		Enqueue(`[]`).
		Enqueue(`[{"class": "organization", "text": "Acme Corp"}]`)

	an, err := groundextract.NewAnnotator("task", newTestExamples(),
		groundextract.WithProvider(fake),
		groundextract.WithChunkingStrategy(groundextract.StrategyFixed),
		groundextract.WithMultipass(true, 3),
	)
	require.NoError(t, err)

	doc := groundextract.NewDocument("Acme Corp is growing fast.", "", nil)
	result, err := an.RunMultiPass(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, result.Extractions, 1)
	assert.Equal(t, "organization", result.Extractions[0].Class)
	assert.Len(t, fake.Calls(), 2, "should stop once the chunk converges, not run all 3 passes")
}

func TestRunMultiPass_StopsAtMaxPassesWhenNeverConverging(t *testing.T) {
	fake := providers.NewFake().Enqueue(`[]`).Enqueue(`[]`).Enqueue(`[]`)

	an, err := groundextract.NewAnnotator("task", newTestExamples(),
		groundextract.WithProvider(fake),
		groundextract.WithChunkingStrategy(groundextract.StrategyFixed),
		groundextract.WithMultipass(true, 3),
	)
	require.NoError(t, err)

	doc := groundextract.NewDocument("Acme Corp is growing fast.", "", nil)
	result, err := an.RunMultiPass(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, result.Extractions)
	assert.Len(t, fake.Calls(), 3)
}
