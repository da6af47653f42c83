package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bookshelf/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	apiErr := &model.APIError{
		Code:     model.ErrCodeBookNotFound,
		Message:  "Book not found",
		Category: "catalog",
		Action:   "書籍IDを確認してください。",
	}

	WriteErrorResponse(w, http.StatusNotFound, apiErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	if body.Success {
		t.Error("success = true, want false")
	}
	if body.Code != model.ErrCodeBookNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeBookNotFound)
	}
	if body.Message != "Book not found" {
		t.Errorf("message = %q, want %q", body.Message, "Book not found")
	}
	if body.Action != "書籍IDを確認してください。" {
		t.Errorf("action = %q", body.Action)
	}
}

// TestWriteValidationErrorResponse_Fields はフィールド別エラーがオブジェクトで返ることを検証する。
func TestWriteValidationErrorResponse_Fields(t *testing.T) {
	w := httptest.NewRecorder()

	WriteValidationErrorResponse(w, &model.ValidationError{Fields: map[string]string{
		"title":  "Title is required",
		"author": "Author is required",
	}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Message != "Validation failed" {
		t.Errorf("message = %q, want %q", body.Message, "Validation failed")
	}
	if body.Code != model.ErrCodeValidation {
		t.Errorf("code = %q", body.Code)
	}
	if body.Errors["title"] != "Title is required" || body.Errors["author"] != "Author is required" {
		t.Errorf("errors = %v", body.Errors)
	}
}

// TestWriteValidationErrorResponse_Messages はメッセージ一覧が配列で返ることを検証する。
func TestWriteValidationErrorResponse_Messages(t *testing.T) {
	tests := []struct {
		name        string
		messages    []string
		wantMessage string
	}{
		{"単一メッセージ", []string{"Book ID is required"}, "Book ID is required"},
		{"複数メッセージ", []string{"Username is required", "Password is required"}, "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteValidationErrorResponse(w, &model.ValidationError{Messages: tt.messages})

			var body struct {
				Message string   `json:"message"`
				Errors  []string `json:"errors"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMessage)
			}
			if len(body.Errors) != len(tt.messages) {
				t.Errorf("errors = %v, want %v", body.Errors, tt.messages)
			}
		})
	}
}

// TestWriteInternalServerError は内部エラーが一般的なメッセージで返ることを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Message != "Internal server error" {
		t.Errorf("message = %q, want %q", body.Message, "Internal server error")
	}
	if body.Errors != nil {
		t.Errorf("errors should be omitted, got %v", body.Errors)
	}
}

// failingWriter は本文の書き込みに必ず失敗するResponseWriter。
type failingWriter struct {
	header http.Header
	status int
}

func (f *failingWriter) Header() http.Header { return f.header }
func (f *failingWriter) WriteHeader(statusCode int) { f.status = statusCode }
func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

// TestWriteErrorResponse_LogsEncodeFailure は本文の書き込み失敗がログに記録されることを検証する。
func TestWriteErrorResponse_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(original) })

	w := &failingWriter{header: make(http.Header)}
	WriteErrorResponse(w, http.StatusNotFound, model.NewBookNotFoundError())

	if w.status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.status, http.StatusNotFound)
	}
	logged := buf.String()
	if !strings.Contains(logged, "failed to encode error response") {
		t.Errorf("log = %q, want encode failure entry", logged)
	}
	if !strings.Contains(logged, model.ErrCodeBookNotFound) {
		t.Errorf("log = %q, want error code", logged)
	}
}
