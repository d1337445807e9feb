package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerBody(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("Date,Name\n"))

	tests := []struct {
		name     string
		body     string
		isBase64 bool
		want     string
	}{
		{"empty", "", false, ""},
		{"flagged base64", encoded, true, "Date,Name\n"},
		{"unflagged base64", encoded, false, "Date,Name\n"},
		{"json stays raw", `{"balance": "100"}`, false, `{"balance": "100"}`},
		{"plain text", "not base64!", false, "not base64!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := triggerBody(tt.body, tt.isBase64)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := triggerBody("%%%", true)
	assert.Error(t, err)
}

func TestHandleHttpTrigger(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payoff", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"balance": "100"}`, string(body))
		WriteJSON(w, http.StatusTeapot, map[string]string{"ok": "yes"})
	})

	var envelope HTTPTriggerRequest
	envelope.Data.Req.URL = "http://localhost:7071/api/payoff"
	envelope.Data.Req.Method = http.MethodPost
	envelope.Data.Req.Headers = map[string][]string{"Content-Type": {"application/json"}}
	envelope.Data.Req.Body = `{"balance": "100"}`
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)

	deps := &Dependencies{}
	w := httptest.NewRecorder()
	deps.HandleHttpTrigger(next)(w, httptest.NewRequest(http.MethodPost, "/HttpTrigger", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HTTPTriggerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTeapot, resp.Outputs.Res.StatusCode)
	assert.Equal(t, "application/json", resp.Outputs.Res.Headers["Content-Type"])
	assert.JSONEq(t, `{"ok": "yes"}`, resp.Outputs.Res.Body)
}

func TestHandleHttpTrigger_BadEnvelope(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()
	deps.HandleHttpTrigger(http.NotFoundHandler())(w, httptest.NewRequest(http.MethodPost, "/HttpTrigger", bytes.NewBufferString("nope")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
