package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindTenantNotFound, http.StatusNotFound},
		{KindEntryNotFound, http.StatusNotFound},
		{KindDuplicateEntry, http.StatusConflict},
		{KindValidation, http.StatusBadRequest},
		{KindMissingPathParameter, http.StatusBadRequest},
		{KindTransportFailure, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestError_StatusOverride(t *testing.T) {
	err := TransportFailure(errors.New("unexpected EOF"), "reading upstream body")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())

	err.Status = http.StatusBadGateway
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
	assert.Equal(t, "reading upstream body: unexpected EOF", err.Error())
}

func TestHelpers_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", EntryNotFound("T1", "orders", "get-order"))

	assert.True(t, Is(wrapped, KindEntryNotFound))
	assert.False(t, Is(wrapped, KindTenantNotFound))
	assert.Equal(t, KindEntryNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapped))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "orders", e.Details["section"])
	assert.Equal(t, "get-order", e.Details["apiName"])
}

func TestHelpers_ForeignError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	_, ok := As(err)
	assert.False(t, ok)
}

func TestMissingPathParameter_Details(t *testing.T) {
	err := MissingPathParameter("orderId", 2, 1)
	assert.Contains(t, err.Error(), `"orderId"`)
	assert.Contains(t, err.Error(), "expected 2")
	assert.Contains(t, err.Error(), "got 1")
	assert.Equal(t, 2, err.Details["expected"])
	assert.Equal(t, 1, err.Details["got"])
}
