package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	cases := map[*Error]int{
		Validation("bad"):           http.StatusBadRequest,
		Unauthorized("no token"):    http.StatusUnauthorized,
		Forbidden("wrong role"):     http.StatusForbidden,
		NotFound("missing"):         http.StatusNotFound,
		Conflict("dup"):             http.StatusConflict,
		External("chain down", nil): http.StatusBadGateway,
		Internal("boom", nil):       http.StatusInternalServerError,
	}
	for e, want := range cases {
		assert.Equal(t, want, e.StatusCode(), e.Message)
	}
}

func TestAsUnwrapsChains(t *testing.T) {
	root := errors.New("driver exploded")
	err := fmt.Errorf("update: %w", Internal("Server error", root))

	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindInternal, ae.Kind)
	assert.ErrorIs(t, err, root)
	assert.True(t, IsKind(err, KindInternal))
	assert.False(t, IsKind(errors.New("plain"), KindInternal))
}

func TestRespondHidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	Respond(c, errors.New("connection refused on 10.0.0.7"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Server error", body["message"])
}

func TestRespondUsesMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	Respond(c, NotFound("Request not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Request not found"}`, rec.Body.String())
}
