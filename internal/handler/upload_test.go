package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadCSV = "Date,Name,Account Number,Amount\n2024-03-05,Coffee,1234,4.50\n"

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleUpload_Success(t *testing.T) {
	deps, _, mockBlob, mockQueue := newTestDeps(t, day(2024, 3, 10))

	mockBlob.UploadTextFunc = func(ctx context.Context, containerName, blobName, content string) error {
		assert.Equal(t, "uploads", containerName)
		assert.Equal(t, "20240310-000000-test.csv", blobName)
		assert.Equal(t, uploadCSV, content)
		return nil
	}

	mockQueue.EnqueueMessageFunc = func(ctx context.Context, queueName string, message any) error {
		assert.Equal(t, "process-queue", queueName)
		msg, ok := message.(importMessage)
		require.True(t, ok)
		assert.Equal(t, "test.csv", msg.Filename)
		assert.Equal(t, "20240310-000000-test.csv", msg.BlobName)
		return nil
	}

	w := httptest.NewRecorder()
	deps.HandleUpload(w, uploadRequest(t, "test.csv", uploadCSV))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	decodeResponse(t, w, &resp)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "20240310-000000-test.csv", resp["blob_name"])
	assert.Equal(t, float64(1), resp["rows"])
}

func TestHandleUpload_RejectsUnusableCSV(t *testing.T) {
	deps, _, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))
	mockBlob.UploadTextFunc = func(ctx context.Context, containerName, blobName, content string) error {
		t.Fatal("invalid files must not be stored")
		return nil
	}

	w := httptest.NewRecorder()
	deps.HandleUpload(w, uploadRequest(t, "bad.csv", "Date,Amount\n2024-03-05,4.50\n"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing column: Name")
}

func TestHandleUpload_MethodNotAllowed(t *testing.T) {
	deps := &Dependencies{}
	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	w := httptest.NewRecorder()

	deps.HandleUpload(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	deps := &Dependencies{}
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	deps.HandleUpload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpload_UploadError(t *testing.T) {
	deps, _, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))
	mockBlob.UploadTextFunc = func(ctx context.Context, containerName, blobName, content string) error {
		return errors.New("upload failed")
	}

	w := httptest.NewRecorder()
	deps.HandleUpload(w, uploadRequest(t, "test.csv", uploadCSV))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to upload blob")
}

func TestHandleUpload_EnqueueError(t *testing.T) {
	deps, _, _, mockQueue := newTestDeps(t, day(2024, 3, 10))
	mockQueue.EnqueueMessageFunc = func(ctx context.Context, queueName string, message any) error {
		return errors.New("enqueue failed")
	}

	w := httptest.NewRecorder()
	deps.HandleUpload(w, uploadRequest(t, "nested/dir/test.csv", uploadCSV))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Failed to enqueue message"))
}
