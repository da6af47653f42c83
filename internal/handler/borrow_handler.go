package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bookshelf/internal/middleware"
	"github.com/hitoshi/bookshelf/internal/model"
)

// BorrowServiceInterface は貸出ハンドラーが必要とするサービスインターフェース。
type BorrowServiceInterface interface {
	Borrow(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error)
	Return(ctx context.Context, userID string, role model.Role, recordID string) (*model.BorrowRecord, error)
	ListForUser(ctx context.Context, userID string) ([]model.BorrowRecordWithBook, error)
}

// BorrowHandler は貸出・返却のHTTPハンドラー。
type BorrowHandler struct {
	service BorrowServiceInterface
}

// NewBorrowHandler はBorrowHandlerを生成する。
func NewBorrowHandler(service BorrowServiceInterface) *BorrowHandler {
	return &BorrowHandler{
		service: service,
	}
}

type borrowRequest struct {
	BookID string `json:"bookId"`
}

type returnRequest struct {
	BorrowRecordID string `json:"borrowRecordId"`
}

type borrowDataResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    borrowRecordResponse `json:"data"`
}

type borrowListResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    []borrowRecordResponse `json:"data"`
}

// Borrow は書籍の貸出を処理する。
// POST /api/borrow
func (h *BorrowHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req borrowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.service.Borrow(r.Context(), userID, req.BookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, borrowDataResponse{
		Success: true,
		Message: "Book borrowed successfully",
		Data:    toBorrowRecordResponse(record),
	})
}

// Return は書籍の返却を処理する。
// POST /api/return
func (h *BorrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.ID == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req returnRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.service.Return(r.Context(), claims.ID, claims.Role, req.BorrowRecordID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, borrowDataResponse{
		Success: true,
		Message: "Book returned successfully",
		Data:    toBorrowRecordResponse(record),
	})
}

// ListBorrows は認証済み利用者の貸出記録を新しい順に返す。
// GET /api/borrows
func (h *BorrowHandler) ListBorrows(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	records, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data := make([]borrowRecordResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, toBorrowRecordWithBookResponse(rec))
	}
	writeJSON(w, http.StatusOK, borrowListResponse{
		Success: true,
		Message: "Borrow records retrieved successfully",
		Data:    data,
	})
}
