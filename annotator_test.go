package groundextract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundextract/groundextract"
	"github.com/groundextract/groundextract/providers"
)

func newTestExamples() []groundextract.Example {
	return []groundextract.Example{
		groundextract.NewExample(
			"Acme Corp reported revenue of $4.2 million.",
			groundextract.ExampleExtraction{Class: "organization", Text: "Acme Corp"},
			groundextract.ExampleExtraction{Class: "revenue", Text: "$4.2 million"},
		),
	}
}

func TestAnnotator_HappyPathAlignsAndAggregates(t *testing.T) {
	fake := providers.NewFake().Enqueue(`[{"class": "organization", "text": "Acme Corp"}]`)

	an, err := groundextract.NewAnnotator("extract organizations", newTestExamples(),
		groundextract.WithProvider(fake),
		groundextract.WithMaxWorkers(2),
		groundextract.WithChunkingStrategy(groundextract.StrategyFixed),
	)
	require.NoError(t, err)

	doc := groundextract.NewDocument("Acme Corp posted strong quarterly results.", "", nil)
	annotated, err := an.Annotate(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, annotated.Extractions, 1)
	assert.Equal(t, "organization", annotated.Extractions[0].Class)
	assert.Equal(t, groundextract.AlignmentExact, annotated.Extractions[0].Status)
	assert.Empty(t, annotated.PartialFailures)
}

func TestAnnotator_EmptyDocumentErrors(t *testing.T) {
	fake := providers.NewFake()
	an, err := groundextract.NewAnnotator("task", newTestExamples(), groundextract.WithProvider(fake))
	require.NoError(t, err)

	_, err = an.Annotate(context.Background(), groundextract.NewDocument("", "", nil))
	require.ErrorIs(t, err, groundextract.ErrEmptyDocument)
}

func TestAnnotator_InvalidUTF8Errors(t *testing.T) {
	fake := providers.NewFake()
	an, err := groundextract.NewAnnotator("task", newTestExamples(), groundextract.WithProvider(fake))
	require.NoError(t, err)

	bad := groundextract.NewDocument(string([]byte{0xff, 0xfe}), "", nil)
	_, err = an.Annotate(context.Background(), bad)
	require.Error(t, err)
	var ce *groundextract.ChunkingError
	require.ErrorAs(t, err, &ce)
}

func TestAnnotator_NoExamplesErrors(t *testing.T) {
	fake := providers.NewFake()
	_, err := groundextract.NewAnnotator("task", nil, groundextract.WithProvider(fake))
	require.ErrorIs(t, err, groundextract.ErrNoExamples)
}

func TestAnnotator_MissingProviderFailsValidation(t *testing.T) {
	_, err := groundextract.NewAnnotator("task", newTestExamples())
	require.Error(t, err)
	var ce *groundextract.ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestAnnotator_ChunkFailureRecordedNotFatalByDefault(t *testing.T) {
	fake := providers.NewFake().FailNext(&groundextract.InferenceError{Provider: "fake", Retriable: false, Err: assertErr})

	an, err := groundextract.NewAnnotator("task", newTestExamples(),
		groundextract.WithProvider(fake),
		groundextract.WithChunkingStrategy(groundextract.StrategyFixed),
	)
	require.NoError(t, err)

	doc := groundextract.NewDocument("short document text.", "", nil)
	annotated, err := an.Annotate(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, annotated.PartialFailures, 1)
	assert.Equal(t, "inference", annotated.PartialFailures[0].Reason)
}

func TestAnnotator_FailFastAbortsOnFirstChunkFailure(t *testing.T) {
	fake := providers.NewFake().FailNext(&groundextract.InferenceError{Provider: "fake", Retriable: false, Err: assertErr})

	an, err := groundextract.NewAnnotator("task", newTestExamples(),
		groundextract.WithProvider(fake),
		groundextract.WithChunkingStrategy(groundextract.StrategyFixed),
		groundextract.WithFailFast(true),
	)
	require.NoError(t, err)

	doc := groundextract.NewDocument("short document text.", "", nil)
	_, err = an.Annotate(context.Background(), doc)
	require.Error(t, err)
}

func TestAnnotator_FromPromptTemplate(t *testing.T) {
	fake := providers.NewFake()
	pp := groundextract.SimplePromptProvider{"extract:v1": "extract every organization mentioned"}

	an, err := groundextract.NewAnnotatorFromPrompt(pp, "extract:v1", 1, newTestExamples(),
		groundextract.WithProvider(fake),
	)
	require.NoError(t, err)
	assert.NotNil(t, an)
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "boom" }
