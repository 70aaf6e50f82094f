package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "s3vectors/pkg/errors"
)

type testQuery struct {
	ID   string
	fail bool
}

func (q testQuery) Validate() error {
	if q.fail {
		return apperrors.NewValidationError("id is required")
	}
	return nil
}

func TestAskDispatchesAndReturnsResult(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(testQuery{}, QueryHandlerFunc(func(_ context.Context, query Query) (interface{}, error) {
		return "result-" + query.(testQuery).ID, nil
	})))

	result, err := b.Ask(context.Background(), testQuery{ID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "result-42", result)
}

func TestAskValidatesBeforeDispatch(t *testing.T) {
	b := NewQueryBus()
	called := false
	require.NoError(t, b.Register(testQuery{}, QueryHandlerFunc(func(_ context.Context, _ Query) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := b.Ask(context.Background(), testQuery{fail: true})
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called)
}

func TestAskUnregisteredQuery(t *testing.T) {
	b := NewQueryBus()
	_, err := b.Ask(context.Background(), testQuery{})
	assert.True(t, apperrors.IsInternal(err))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	b := NewQueryBus()
	handler := QueryHandlerFunc(func(_ context.Context, _ Query) (interface{}, error) { return nil, nil })

	require.NoError(t, b.Register(testQuery{}, handler))
	assert.Error(t, b.Register(testQuery{}, handler))
}
