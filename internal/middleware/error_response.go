package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookshelf/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 成功レスポンスと同じくsuccessフィールドを持ち、クライアントはsuccessだけで成否を判定できる。
type ErrorResponseBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Action  string `json:"action,omitempty"`
	// Errors は検証エラーの詳細。フィールド別の場合はオブジェクト、それ以外は配列になる。
	Errors any `json:"errors,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeErrorBody(w, statusCode, ErrorResponseBody{
		Success: false,
		Message: apiErr.Message,
		Code:    apiErr.Code,
		Action:  apiErr.Action,
	})
}

// WriteValidationErrorResponse は検証エラーを400で書き込む。
func WriteValidationErrorResponse(w http.ResponseWriter, verr *model.ValidationError) {
	body := ErrorResponseBody{
		Success: false,
		Message: "Validation failed",
		Code:    model.ErrCodeValidation,
	}
	switch {
	case len(verr.Fields) > 0:
		body.Errors = verr.Fields
	default:
		body.Errors = verr.Messages
		// 単一メッセージの場合はmessageにも設定する
		if len(verr.Messages) == 1 {
			body.Message = verr.Messages[0]
		}
	}
	writeErrorBody(w, http.StatusBadRequest, body)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response",
			slog.String("code", body.Code),
			slog.String("error", err.Error()),
		)
	}
}
