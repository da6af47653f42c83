// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// サービス層はドメイン上の失敗をAPIErrorで返し、HTTPステータスへの変換はハンドラー層のみで行う。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, borrow, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeUsernameTaken        = "USERNAME_TAKEN"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeBookNotFound         = "BOOK_NOT_FOUND"
	ErrCodeBookHasBorrowRecords = "BOOK_HAS_BORROW_RECORDS"
	ErrCodeBookUnavailable      = "BOOK_UNAVAILABLE"
	ErrCodeAlreadyBorrowed      = "ALREADY_BORROWED"
	ErrCodeBorrowNotFound       = "BORROW_RECORD_NOT_FOUND"
	ErrCodeAlreadyReturned      = "ALREADY_RETURNED"
	ErrCodeRateLimited          = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewUnauthorizedError はトークン未指定エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Access denied. No token provided.",
		Category: "auth",
		Action:   "ログインして取得したトークンをAuthorizationヘッダーに指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー名の存在有無を推測されないよう、未登録ユーザーとパスワード不一致で同一の内容を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid username or password",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewInvalidTokenError は署名不正・期限切れトークンのエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid or expired token",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(role Role) *APIError {
	msg := "Access denied."
	if role == RoleAdmin {
		msg = "Access denied. Admin privileges required."
	}
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  msg,
		Category: "auth",
		Action:   fmt.Sprintf("%s権限を持つアカウントで操作してください。", role),
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "Username already exists",
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewBookNotFoundError は書籍未検出エラーを生成する。
func NewBookNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  "Book not found",
		Category: "catalog",
		Action:   "書籍IDを確認してください。",
	}
}

// NewBookHasBorrowRecordsError は貸出記録（返却済みを含む）が残っている書籍を削除しようとした場合のエラーを生成する。
func NewBookHasBorrowRecordsError() *APIError {
	return &APIError{
		Code:     ErrCodeBookHasBorrowRecords,
		Message:  "Book has borrow records and cannot be deleted",
		Category: "catalog",
		Action:   "貸出記録のない書籍のみ削除できます。",
	}
}

// NewBookUnavailableError は在庫切れエラーを生成する。
func NewBookUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBookUnavailable,
		Message:  "Book is not available. No copies left.",
		Category: "borrow",
		Action:   "返却されるまでお待ちください。",
	}
}

// NewAlreadyBorrowedError は同一書籍の二重貸出エラーを生成する。
func NewAlreadyBorrowedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyBorrowed,
		Message:  "You have already borrowed this book. Please return it before borrowing again.",
		Category: "borrow",
		Action:   "返却してから再度借りてください。",
	}
}

// NewBorrowRecordNotFoundError は貸出記録未検出エラーを生成する。
func NewBorrowRecordNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBorrowNotFound,
		Message:  "Borrow record not found",
		Category: "borrow",
		Action:   "貸出記録IDを確認してください。",
	}
}

// NewAlreadyReturnedError は返却済み記録の再返却エラーを生成する。
func NewAlreadyReturnedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReturned,
		Message:  "This book has already been returned",
		Category: "borrow",
		Action:   "貸出一覧で状態を確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// ValidationError は入力値の検証エラーを表す。
// Fieldsはフィールド名ごとのメッセージ、Messagesはフィールドに紐付かないメッセージの一覧。
type ValidationError struct {
	Fields   map[string]string
	Messages []string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields)+len(e.Messages))
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	parts = append(parts, e.Messages...)
	return "validation failed: " + strings.Join(parts, "; ")
}

// AddField はフィールドエラーを追加する。同一フィールドは最初のメッセージを保持する。
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// Add はフィールドに紐付かないメッセージを追加する。
func (e *ValidationError) Add(message string) {
	e.Messages = append(e.Messages, message)
}

// HasErrors はエラーが1件以上あるかを返す。
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0 || len(e.Messages) > 0
}

// OrNil はエラーがない場合にnilを返す。
// 呼び出し側で`return v.OrNil()`と書けるようにするためのヘルパー。
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}
