package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/menumate/pkg/errorbank"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestBuildSuccessEchoesRequestID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	require.NoError(t, New(c).WithStatus(http.StatusCreated).WithData(map[string]int{"n": 1}).Build())

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "req-1", body.Meta["request_id"])
}

func TestBuildErrorUsesKindStatus(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, New(c).WithError(errorbank.Forbidden("nope")).Build())

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "forbidden", body.Error.Kind)
	assert.Equal(t, "nope", body.Error.Message)
}

func TestBuildSuccessListsWarnings(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/orders", nil), rec)

	require.NoError(t, New(c).
		WithStatus(http.StatusCreated).
		WithData(map[string]int{"order_number": 4}).
		WithWarning("items_partially_persisted", "1 of 3 items could not be saved").
		Build())

	var body struct {
		Success bool `json:"success"`
		Meta    struct {
			Warnings []Warning `json:"warnings"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.Success)
	require.Len(t, body.Meta.Warnings, 1)
	assert.Equal(t, "items_partially_persisted", body.Meta.Warnings[0].Kind)
}
