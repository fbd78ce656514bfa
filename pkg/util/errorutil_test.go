package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	err := NewConcurrentModification(map[string]any{"ticket_id": "NORT00001"})
	domainErr := ToDomainError(err)
	assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
}

func TestToDomainError_UnwrapsWrappedDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", NewSchemaViolation("bad field", nil))
	assert.Equal(t, "SCHEMA_VIOLATION", ToDomainError(wrapped).Code)
}

func TestToDomainError_FoldsNoRowsToNotFound(t *testing.T) {
	domainErr := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
}

func TestToDomainError_UnknownBecomesStoreFailure(t *testing.T) {
	cause := errors.New("connection reset")
	domainErr := ToDomainError(cause)
	assert.Equal(t, "STORE_FAILURE", domainErr.Code)
	assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
	require.ErrorIs(t, domainErr, cause)
}

func TestDomainError_Details(t *testing.T) {
	err := NewInvalidDate("dueAt", "soonish")
	domainErr := ToDomainError(err)
	assert.Equal(t, "INVALID_DATE", domainErr.Code)
	assert.Equal(t, "dueAt", domainErr.Details["field"])
	assert.Equal(t, "soonish", domainErr.Details["value"])
}
