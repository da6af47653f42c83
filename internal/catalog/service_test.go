package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/bookshelf/internal/model"
	"github.com/hitoshi/bookshelf/internal/repository"
	"github.com/hitoshi/bookshelf/internal/security"
)

// --- モック定義 ---

type mockBookRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Book, error)
	listFn     func(ctx context.Context) ([]*model.Book, error)
	createFn   func(ctx context.Context, book *model.Book) error
	updateFn   func(ctx context.Context, book *model.Book) error
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockBookRepo) List(ctx context.Context) ([]*model.Book, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Book{}, nil
}

func (m *mockBookRepo) Create(ctx context.Context, book *model.Book) error {
	if m.createFn != nil {
		return m.createFn(ctx, book)
	}
	return nil
}

func (m *mockBookRepo) Update(ctx context.Context, book *model.Book) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, book)
	}
	return nil
}

func (m *mockBookRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// newMemoryBookRepo はmapで書籍を保持するモックを返す。
func newMemoryBookRepo() *mockBookRepo {
	books := map[string]*model.Book{}
	return &mockBookRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Book, error) {
			if b, ok := books[id]; ok {
				copied := *b
				return &copied, nil
			}
			return nil, nil
		},
		createFn: func(_ context.Context, book *model.Book) error {
			copied := *book
			books[book.ID] = &copied
			return nil
		},
		updateFn: func(_ context.Context, book *model.Book) error {
			if _, ok := books[book.ID]; !ok {
				return repository.ErrNotFound
			}
			copied := *book
			books[book.ID] = &copied
			return nil
		},
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// 作成した書籍を取得すると同じ内容が返る
func TestService_CreateThenGet_RoundTrip(t *testing.T) {
	svc := NewService(newMemoryBookRepo(), security.NewTextSanitizer())
	ctx := context.Background()

	inputs := []BookInput{
		{Title: "Dune", Author: "Frank Herbert", AvailableCopies: model.NewCopies(3)},
		{Title: "吾輩は猫である", Author: "夏目漱石", AvailableCopies: model.NewCopies(0)},
		{Title: "Tom & Jerry", Author: "Hanna-Barbera", AvailableCopies: model.NewCopies(100)},
	}
	for _, input := range inputs {
		created, err := svc.Create(ctx, input)
		if err != nil {
			t.Fatalf("Create(%+v) failed: %v", input, err)
		}
		got, err := svc.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != input.Title || got.Author != input.Author || got.AvailableCopies != input.AvailableCopies.Value {
			t.Errorf("got %+v, want %+v", got, input)
		}
	}
}

// タイトル・著者のHTMLは除去される
func TestService_Create_SanitizesText(t *testing.T) {
	var saved *model.Book
	repo := &mockBookRepo{
		createFn: func(_ context.Context, book *model.Book) error {
			saved = book
			return nil
		},
	}
	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Create(context.Background(), BookInput{
		Title:           "<b>Dune</b>",
		Author:          "<script>alert(1)</script>Frank Herbert",
		AvailableCopies: model.NewCopies(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", saved.Title)
	}
	if saved.Author != "Frank Herbert" {
		t.Errorf("Author = %q, want Frank Herbert", saved.Author)
	}
}

// タグのみのタイトルは除去後に空となり検証エラーになる
func TestService_Create_TagOnlyTitleIsRequired(t *testing.T) {
	repo := &mockBookRepo{
		createFn: func(context.Context, *model.Book) error {
			t.Fatal("Create must not be called")
			return nil
		},
	}
	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Create(context.Background(), BookInput{Title: "<br>", Author: "A", AvailableCopies: model.NewCopies(1)})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Fields["title"] != "Title is required" {
		t.Errorf("expected title validation error, got %v", err)
	}
}

func TestService_Create_NegativeCopiesRejected(t *testing.T) {
	svc := NewService(newMemoryBookRepo(), nil)

	_, err := svc.Create(context.Background(), BookInput{Title: "Dune", Author: "Frank Herbert", AvailableCopies: model.NewCopies(-1)})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc := NewService(newMemoryBookRepo(), nil)

	_, err := svc.Get(context.Background(), uuid.NewString())
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)

	// UUID形式でないIDはリポジトリを呼ばずに未検出となる
	repo := &mockBookRepo{
		findByIDFn: func(context.Context, string) (*model.Book, error) {
			t.Fatal("FindByID must not be called")
			return nil, nil
		},
	}
	_, err = NewService(repo, nil).Get(context.Background(), "not-a-uuid")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)
}

func TestService_Get_RepositoryError(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &mockBookRepo{
		findByIDFn: func(context.Context, string) (*model.Book, error) { return nil, dbErr },
	}

	_, err := NewService(repo, nil).Get(context.Background(), uuid.NewString())
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

func TestService_Update(t *testing.T) {
	svc := NewService(newMemoryBookRepo(), nil)
	ctx := context.Background()
	created, err := svc.Create(ctx, BookInput{Title: "Old", Author: "Someone", AvailableCopies: model.NewCopies(1)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, BookInput{Title: "New", Author: "Other", AvailableCopies: model.NewCopies(5)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "New" || updated.Author != "Other" || updated.AvailableCopies != 5 {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt must not change")
	}
}

// 検証エラーは存在確認より先に返る
func TestService_Update_ValidationBeforeLookup(t *testing.T) {
	repo := &mockBookRepo{
		findByIDFn: func(context.Context, string) (*model.Book, error) {
			t.Fatal("FindByID must not be called")
			return nil, nil
		},
	}

	_, err := NewService(repo, nil).Update(context.Background(), uuid.NewString(), BookInput{})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(newMemoryBookRepo(), nil)

	_, err := svc.Update(context.Background(), uuid.NewString(), BookInput{Title: "T", Author: "A", AvailableCopies: model.NewCopies(1)})
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)
}

func TestService_Delete(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
	}{
		{"削除成功", nil, ""},
		{"存在しない", repository.ErrNotFound, model.ErrCodeBookNotFound},
		{"貸出記録が残っている", repository.ErrReferenced, model.ErrCodeBookHasBorrowRecords},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockBookRepo{
				deleteFn: func(context.Context, string) error { return tt.repoErr },
			}
			err := NewService(repo, nil).Delete(context.Background(), uuid.NewString())
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestService_Delete_InvalidID(t *testing.T) {
	err := NewService(&mockBookRepo{}, nil).Delete(context.Background(), "42")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)
}

func TestService_List(t *testing.T) {
	repo := &mockBookRepo{
		listFn: func(context.Context) ([]*model.Book, error) {
			return []*model.Book{{ID: "b1", Title: "A"}, {ID: "b2", Title: "B"}}, nil
		},
	}

	books, err := NewService(repo, nil).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("len = %d, want 2", len(books))
	}
}
