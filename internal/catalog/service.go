// Package catalog は蔵書カタログの登録・参照・更新・削除を提供する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookshelf/internal/model"
	"github.com/hitoshi/bookshelf/internal/repository"
	"github.com/hitoshi/bookshelf/internal/security"
)

// Service は蔵書カタログのビジネスロジックを提供する。
type Service struct {
	bookRepo  repository.BookRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(bookRepo repository.BookRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		bookRepo:  bookRepo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// normalize はタイトルと著者からHTMLを除去する。
func (s *Service) normalize(input BookInput) BookInput {
	if s.sanitizer != nil {
		input.Title = s.sanitizer.Sanitize(input.Title)
		input.Author = s.sanitizer.Sanitize(input.Author)
	}
	return input
}

// Create は書籍を登録する。
func (s *Service) Create(ctx context.Context, input BookInput) (*model.Book, error) {
	input = s.normalize(input)
	if err := Validate(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	book := &model.Book{
		ID:              uuid.New().String(),
		Title:           input.Title,
		Author:          input.Author,
		AvailableCopies: input.AvailableCopies.Value,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	slog.Info("book created",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
	)
	return book, nil
}

// List は全書籍を返す。
func (s *Service) List(ctx context.Context) ([]*model.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Get は指定IDの書籍を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Book, error) {
	if !isValidID(id) {
		return nil, model.NewBookNotFoundError()
	}

	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError()
	}
	return book, nil
}

// Update は書籍のタイトル・著者・在庫数を更新する。
// 入力値の検証は存在確認より先に行う。
func (s *Service) Update(ctx context.Context, id string, input BookInput) (*model.Book, error) {
	input = s.normalize(input)
	if err := Validate(input); err != nil {
		return nil, err
	}

	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	book.Title = input.Title
	book.Author = input.Author
	book.AvailableCopies = input.AvailableCopies.Value
	book.UpdatedAt = s.now().UTC()

	if err := s.bookRepo.Update(ctx, book); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewBookNotFoundError()
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	slog.Info("book updated",
		slog.String("book_id", book.ID),
		slog.Int("available_copies", book.AvailableCopies),
	)
	return book, nil
}

// Delete は書籍を削除する。
// 貸出記録が残っている書籍は台帳の整合性を保つため削除できない。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return model.NewBookNotFoundError()
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.NewBookNotFoundError()
		case errors.Is(err, repository.ErrReferenced):
			return model.NewBookHasBorrowRecordsError()
		default:
			return fmt.Errorf("failed to delete book: %w", err)
		}
	}

	slog.Info("book deleted", slog.String("book_id", id))
	return nil
}

// isValidID はUUID形式のIDかどうかを返す。
// PostgreSQLのuuid型へのキャストエラーを避けるため、形式不正は未検出として扱う。
func isValidID(id string) bool {
	return uuid.Validate(id) == nil
}
