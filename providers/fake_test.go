package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundextract/groundextract"
)

func TestFake_EnqueueConsumedFIFO(t *testing.T) {
	f := NewFake().Enqueue("first").Enqueue("second")

	out1, err := f.InferBatch(context.Background(), []string{"p1"}, groundextract.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, out1)

	out2, err := f.InferBatch(context.Background(), []string{"p2"}, groundextract.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, out2)
}

func TestFake_EchoesEmptyArrayWhenQueueExhausted(t *testing.T) {
	f := NewFake()
	out, err := f.InferBatch(context.Background(), []string{"p1", "p2"}, groundextract.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"[]", "[]"}, out)
}

func TestFake_FailNextConsumedOnce(t *testing.T) {
	boom := assertError("boom")
	f := NewFake().FailNext(boom)

	_, err := f.InferBatch(context.Background(), []string{"p1"}, groundextract.Params{})
	require.ErrorIs(t, err, boom)

	out, err := f.InferBatch(context.Background(), []string{"p1"}, groundextract.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"[]"}, out)
}

func TestFake_CallsRecordsEveryInvocation(t *testing.T) {
	f := NewFake().Enqueue("x")
	_, err := f.InferBatch(context.Background(), []string{"p1", "p2"}, groundextract.Params{Temperature: 0.3})
	require.NoError(t, err)

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"p1", "p2"}, calls[0].Prompts)
	assert.Equal(t, 0.3, calls[0].Params.Temperature)
}

func TestFake_Identity(t *testing.T) {
	f := NewFake()
	assert.Equal(t, "fake", f.Name())
	assert.True(t, f.SupportsSchema())
}

type assertError string

func (e assertError) Error() string { return string(e) }
