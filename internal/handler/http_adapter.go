package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
)

// HTTPTriggerRequest is the Functions host envelope around an HTTP request.
type HTTPTriggerRequest struct {
	Data struct {
		Req struct {
			URL             string              `json:"Url"`
			Method          string              `json:"Method"`
			Query           map[string]string   `json:"Query"`
			Headers         map[string][]string `json:"Headers"`
			Params          map[string]string   `json:"Params"`
			Body            string              `json:"Body"`
			IsBase64Encoded bool                `json:"isBase64Encoded"`
		} `json:"req"`
	} `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// HTTPTriggerResponse is the envelope the Functions host expects back.
type HTTPTriggerResponse struct {
	Outputs struct {
		Res struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		} `json:"res"`
	} `json:"Outputs"`
	Logs        []string `json:"Logs,omitempty"`
	ReturnValue any      `json:"ReturnValue,omitempty"`
}

// triggerBody returns the wrapped request body. Some hosts send base64
// without setting the flag, so bodies that are not JSON are decoded when
// they happen to be valid base64.
func triggerBody(body string, isBase64 bool) ([]byte, error) {
	if body == "" {
		return nil, nil
	}
	if isBase64 {
		return base64.StdEncoding.DecodeString(body)
	}
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return []byte(body), nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(body); err == nil {
		return decoded, nil
	}
	return []byte(body), nil
}

// unwrapTrigger builds the internal request carried by an envelope.
func unwrapTrigger(ctx context.Context, envelope HTTPTriggerRequest) (*http.Request, error) {
	reqData := envelope.Data.Req
	body, err := triggerBody(reqData.Body, reqData.IsBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	var reader io.Reader = http.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, reqData.Method, reqData.URL, reader)
	if err != nil {
		return nil, err
	}
	for k, values := range reqData.Headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// wrapResponse converts a recorded response into the host envelope.
func wrapResponse(rec *httptest.ResponseRecorder) HTTPTriggerResponse {
	result := rec.Result()
	defer result.Body.Close()
	body, _ := io.ReadAll(result.Body)

	headers := make(map[string]string, len(result.Header))
	for k, v := range result.Header {
		headers[k] = strings.Join(v, ", ")
	}

	var resp HTTPTriggerResponse
	resp.Outputs.Res.StatusCode = result.StatusCode
	resp.Outputs.Res.Headers = headers
	resp.Outputs.Res.Body = string(body)
	return resp
}

// HandleHttpTrigger adapts the Azure Functions JSON POST request to a standard HTTP request/response.
// It wraps the provided Next handler (usually the ServeMux).
func (d *Dependencies) HandleHttpTrigger(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope HTTPTriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			slog.Error("failed to unmarshal HTTP trigger request", "error", err)
			http.Error(w, "Failed to unmarshal request", http.StatusBadRequest)
			return
		}

		internal, err := unwrapTrigger(r.Context(), envelope)
		if err != nil {
			slog.Error("failed to create internal request", "error", err)
			http.Error(w, "Failed to create internal request", http.StatusBadRequest)
			return
		}
		slog.Info("processing wrapped HTTP request", "method", internal.Method, "path", internal.URL.Path)

		recorder := httptest.NewRecorder()
		next.ServeHTTP(recorder, internal)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(wrapResponse(recorder)); err != nil {
			slog.Error("failed to encode HTTP trigger response", "error", err)
		}
	}
}
