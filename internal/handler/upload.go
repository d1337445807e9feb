package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rocjay1/card-simulator/internal/csvparse"
)

// maxUploadBytes caps the multipart form size.
const maxUploadBytes = 10 << 20

// HandleUpload stores an uploaded transaction CSV and queues it for import.
func (d *Dependencies) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		slog.Warn("upload attempt with invalid method", "method", r.Method, "path", r.URL.Path)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", maxUploadBytes>>20)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", header.Filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	content := string(data)
	slog.Info("received file upload", "filename", header.Filename, "size_bytes", len(data))

	// Reject files the importer could not use at all.
	transactions, rowErrors := csvparse.ParseCSV(content)
	if len(transactions) == 0 {
		msg := "No transactions found in file"
		if len(rowErrors) > 0 {
			msg = "Invalid CSV: " + strings.Join(rowErrors, "; ")
		}
		slog.Warn("rejected upload", "filename", header.Filename, "errors_count", len(rowErrors))
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	filename := filepath.Base(header.Filename)
	blobName := fmt.Sprintf("%s-%s", d.now().Format("20060102-150405"), filename)
	container := d.Config.Storage.UploadsContainer

	if err := d.Blob.UploadText(r.Context(), container, blobName, content); err != nil {
		slog.Error("failed to upload blob", "blob_name", blobName, "container", container, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to upload blob: "+err.Error())
		return
	}

	queue := d.Config.Storage.ImportQueue
	msg := importMessage{BlobName: blobName, Filename: filename}
	if err := d.Queue.EnqueueMessage(r.Context(), queue, msg); err != nil {
		slog.Error("failed to enqueue message", "queue", queue, "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue message: "+err.Error())
		return
	}
	slog.Info("queued upload for import", "queue", queue, "blob_name", blobName, "rows", len(transactions), "row_errors", len(rowErrors))

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"blob_name":  blobName,
		"rows":       len(transactions),
		"row_errors": rowErrors,
	})
}
