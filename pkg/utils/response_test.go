package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondDetail(rr, http.StatusInternalServerError, "Internal server error")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Internal server error", body["detail"])
}

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusNotFound, "missing")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "missing", body["error"])
}
