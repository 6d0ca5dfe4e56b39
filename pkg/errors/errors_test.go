package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrConflict, "transition already in flight")

	assert.True(t, stdErrors.Is(err, ErrConflict))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.Equal(t, "transition already in flight", err.Message)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestNewRemoteFailureKeepsUpstreamDetails(t *testing.T) {
	err := NewRemoteFailure("kurikulum tidak ditemukan", "E404", http.StatusNotFound)

	assert.Equal(t, KindRemoteFailure, err.Code)
	assert.Equal(t, "E404", err.RemoteCode)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "kurikulum tidak ditemukan", err.Error())
}

func TestNewRemoteFailureDefaults(t *testing.T) {
	err := NewRemoteFailure("", "", 0)

	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Equal(t, ErrRemoteFailure.Message, err.Message)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindInternal, Kind(fmt.Errorf("boom")))
	assert.Equal(t, KindValidation, Kind(fmt.Errorf("wrapped: %w", Clone(ErrValidation, "notes required"))))
}
