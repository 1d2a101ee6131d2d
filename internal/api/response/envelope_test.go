package response_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmeza44/team-vault-sub000/internal/api/response"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()

	response.Success(rec, 200, map[string]string{"name": "prod db"}, "req-123")

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Nil(t, env.Error)
	assert.Equal(t, "req-123", env.Meta.RequestID)
	assert.NotEmpty(t, env.Meta.Timestamp)
}

func TestSuccess_GeneratesRequestIDWhenMissing(t *testing.T) {
	rec := httptest.NewRecorder()

	response.Success(rec, 201, nil, "")

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Meta.RequestID)
}

func TestErr(t *testing.T) {
	rec := httptest.NewRecorder()

	response.Err(rec, 404, "NOT_FOUND", "Credential not found", "req-123")

	assert.Equal(t, 404, rec.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "Credential not found", env.Error.Message)
	assert.Nil(t, env.Data)
}

func TestErrWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	details := []map[string]string{{"field": "name", "message": "name is required"}}
	response.ErrWithDetails(rec, 400, "VALIDATION_ERROR", "Invalid request", details, "req-123")

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotNil(t, env.Error.Details)
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()

	response.NoContent(rec)

	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}
