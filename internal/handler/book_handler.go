package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookshelf/internal/catalog"
	"github.com/hitoshi/bookshelf/internal/model"
)

// CatalogServiceInterface は書籍ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	Create(ctx context.Context, input catalog.BookInput) (*model.Book, error)
	List(ctx context.Context) ([]*model.Book, error)
	Get(ctx context.Context, id string) (*model.Book, error)
	Update(ctx context.Context, id string, input catalog.BookInput) (*model.Book, error)
	Delete(ctx context.Context, id string) error
}

// BookHandler は蔵書管理のHTTPハンドラー。
type BookHandler struct {
	service CatalogServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service CatalogServiceInterface) *BookHandler {
	return &BookHandler{
		service: service,
	}
}

// bookRequest は書籍の登録・更新リクエストのボディ。
// availableCopiesは未指定や非数値を判別するためmodel.Copiesで受け取る。
type bookRequest struct {
	Title           string       `json:"title"`
	Author          string       `json:"author"`
	AvailableCopies model.Copies `json:"availableCopies"`
}

func (req bookRequest) toInput() catalog.BookInput {
	return catalog.BookInput{
		Title:           req.Title,
		Author:          req.Author,
		AvailableCopies: req.AvailableCopies,
	}
}

type bookListResponse struct {
	Success bool           `json:"success"`
	Data    []bookResponse `json:"data"`
}

type bookDataResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    bookResponse `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListBooks は書籍一覧を返す。
// GET /api/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data := make([]bookResponse, 0, len(books))
	for _, b := range books {
		data = append(data, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, bookListResponse{Success: true, Data: data})
}

// GetBook は書籍詳細を返す。
// GET /api/books/:id
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookDataResponse{Success: true, Data: toBookResponse(book)})
}

// CreateBook は書籍を登録する。
// POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookDataResponse{
		Success: true,
		Message: "Book created successfully",
		Data:    toBookResponse(book),
	})
}

// UpdateBook は書籍を更新する。
// PUT /api/books/:id
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookDataResponse{
		Success: true,
		Message: "Book updated successfully",
		Data:    toBookResponse(book),
	})
}

// DeleteBook は書籍を削除する。
// DELETE /api/books/:id
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Book deleted successfully"})
}
