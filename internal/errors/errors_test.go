package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_FormatIncludesCode(t *testing.T) {
	err := New(ErrCodeStorage, "disk full", nil)
	assert.Equal(t, "[ERR_401_STORAGE] disk full", err.Error())
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := stderrors.New("boom")
	err := New(ErrCodeConverterFailed, "conversion failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, stderrors.Is(err, New(ErrCodeConverterFailed, "other message", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeStorage, "other", nil)))
}

func TestHasCode_WalksWrappedChains(t *testing.T) {
	inner := QueryInvalid("q", "q'", nil)
	wrapped := fmt.Errorf("outer: %w", inner)

	assert.True(t, HasCode(wrapped, ErrCodeQueryInvalid))
	assert.False(t, HasCode(wrapped, ErrCodeStorage))
	assert.False(t, HasCode(nil, ErrCodeStorage))
}

func TestQueryInvalid_CarriesBothForms(t *testing.T) {
	err := QueryInvalid("title:X", "title_normalized:x", nil)
	require.NotNil(t, err.Details)
	assert.Equal(t, "title:X", err.Details["query"])
	assert.Equal(t, "title_normalized:x", err.Details["rewritten"])
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStorage, nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInputNotFound, GetCode(InputNotFound("/x", nil)))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}
