package item_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	item "github.com/tigerroll/surfbatch/pkg/batch/component/item"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
)

func TestPassThrough(t *testing.T) {
	out, err := item.NewPassThroughItemProcessor[string]().Process(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", out)
}

func TestCompose_FilterStopsChain(t *testing.T) {
	called := 0
	toString := item.FunctionItemProcessor[int, string](func(_ context.Context, n int) (string, error) {
		called++
		return strconv.Itoa(n), nil
	})
	even := item.NewFilteringItemProcessor(func(n int) bool { return n%2 == 0 })
	p := item.Compose[int, int, string](even, toString)

	out, err := p.Process(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "4", out)

	_, err = p.Process(context.Background(), 3)
	assert.True(t, errors.Is(err, port.ErrFilterItem))
	assert.Equal(t, 1, called)
}
