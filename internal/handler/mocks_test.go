package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookshelf/internal/auth"
	"github.com/hitoshi/bookshelf/internal/catalog"
	"github.com/hitoshi/bookshelf/internal/middleware"
	"github.com/hitoshi/bookshelf/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn     func(ctx context.Context, username, password string, role model.Role) (*model.User, error)
	authenticateFn func(ctx context.Context, username, password string) (*auth.LoginResult, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password, role)
	}
	return nil, nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, username, password string) (*auth.LoginResult, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	createFn func(ctx context.Context, input catalog.BookInput) (*model.Book, error)
	listFn   func(ctx context.Context) ([]*model.Book, error)
	getFn    func(ctx context.Context, id string) (*model.Book, error)
	updateFn func(ctx context.Context, id string, input catalog.BookInput) (*model.Book, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockCatalogService) Create(ctx context.Context, input catalog.BookInput) (*model.Book, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return nil, nil
}

func (m *mockCatalogService) List(ctx context.Context) ([]*model.Book, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Book{}, nil
}

func (m *mockCatalogService) Get(ctx context.Context, id string) (*model.Book, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewBookNotFoundError()
}

func (m *mockCatalogService) Update(ctx context.Context, id string, input catalog.BookInput) (*model.Book, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, input)
	}
	return nil, model.NewBookNotFoundError()
}

func (m *mockCatalogService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockBorrowService はBorrowServiceInterfaceのモック実装。
type mockBorrowService struct {
	borrowFn      func(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error)
	returnFn      func(ctx context.Context, userID string, role model.Role, recordID string) (*model.BorrowRecord, error)
	listForUserFn func(ctx context.Context, userID string) ([]model.BorrowRecordWithBook, error)
}

func (m *mockBorrowService) Borrow(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error) {
	if m.borrowFn != nil {
		return m.borrowFn(ctx, userID, bookID)
	}
	return nil, nil
}

func (m *mockBorrowService) Return(ctx context.Context, userID string, role model.Role, recordID string) (*model.BorrowRecord, error) {
	if m.returnFn != nil {
		return m.returnFn(ctx, userID, role, recordID)
	}
	return nil, nil
}

func (m *mockBorrowService) ListForUser(ctx context.Context, userID string) ([]model.BorrowRecordWithBook, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return []model.BorrowRecordWithBook{}, nil
}

// --- テストヘルパー ---

// withClaims はテスト用にリクエストコンテキストに認証済みクレームを注入するヘルパー。
func withClaims(r *http.Request, userID string, role model.Role) *http.Request {
	ctx := middleware.ContextWithClaims(r.Context(), &auth.Claims{ID: userID, Username: userID, Role: role})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeBody はレスポンスボディを汎用マップにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}
