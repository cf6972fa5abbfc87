package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeEnsembleGenerationFailed, "no relaxed candidate survived")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeEnsembleGenerationFailed, err.Code)
	assert.Contains(t, err.Error(), "ENS_001")
	assert.Contains(t, err.Error(), "no relaxed candidate survived")
	assert.NotEmpty(t, err.Stack)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeRelaxationDiverged, "trial %d discarded after %d iterations", 3, 200)
	assert.Equal(t, "[ENS_002] trial 3 discarded after 200 iterations", err.Error())
}

func TestWithDetail(t *testing.T) {
	base := New(ErrCodeInvalidInput, "flexible set is empty")
	detailed := base.WithDetail("binder chain B")
	assert.Contains(t, detailed.Error(), "binder chain B")
	// Original is untouched.
	assert.Empty(t, base.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("short read")
	err := Wrap(cause, ErrCodePDBParseFailed, "failed to read binder structure")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodePDBParseFailed, err.Code)
	assert.Equal(t, cause, err.Unwrap())

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestWrapPreservesCodeForUnknown(t *testing.T) {
	inner := New(ErrCodeDesignSearchExhausted, "beam emptied at depth 4")
	outer := Wrap(inner, ErrCodeUnknown, "design stage failed")
	assert.Equal(t, ErrCodeDesignSearchExhausted, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeDesignSearchExhausted, "beam emptied")
	outer := Wrap(inner, ErrCodeStageFailed, "design stage failed")
	assert.True(t, IsCode(outer, ErrCodeStageFailed))
	assert.True(t, IsCode(outer, ErrCodeDesignSearchExhausted))
	assert.False(t, IsCode(outer, ErrCodeJobCancelled))
	assert.False(t, IsCode(nil, ErrCodeInternal))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(Cancelled("ensemble")))
	assert.False(t, IsCancelled(New(ErrCodeInternal, "boom")))
	assert.False(t, IsCancelled(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeInvalidInput, GetCode(InvalidInput("empty flexible set")))
}

func TestCancelledCarriesStage(t *testing.T) {
	err := Cancelled("design")
	assert.Contains(t, err.Error(), "stage=design")
	assert.Equal(t, ErrCodeJobCancelled, err.Code)
}
