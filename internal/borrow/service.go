// Package borrow は書籍の貸出・返却ワークフローを提供する。
// 台帳への記録と在庫数の増減は同一トランザクションで行う。
package borrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookshelf/internal/metrics"
	"github.com/hitoshi/bookshelf/internal/model"
	"github.com/hitoshi/bookshelf/internal/repository"
)

// 貸出拒否の理由（メトリクスのラベル）
const (
	RejectBookNotFound    = "book_not_found"
	RejectAlreadyBorrowed = "already_borrowed"
	RejectUnavailable     = "unavailable"
)

// Service は貸出・返却のビジネスロジックを提供する。
type Service struct {
	bookRepo   repository.BookRepository
	borrowRepo repository.BorrowRepository
	metrics    metrics.MetricsCollector
	now        func() time.Time
}

// Option はServiceのオプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	bookRepo repository.BookRepository,
	borrowRepo repository.BorrowRepository,
	collector metrics.MetricsCollector,
	opts ...Option,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	s := &Service{
		bookRepo:   bookRepo,
		borrowRepo: borrowRepo,
		metrics:    collector,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Borrow は書籍を貸し出す。
// 書籍の存在、同一書籍の貸出中記録、在庫の順に確認し、貸出記録の追加と在庫の減算を行う。
func (s *Service) Borrow(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error) {
	if err := validateID(bookID, "Book ID is required", "Invalid Book ID format"); err != nil {
		return nil, err
	}

	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		s.metrics.RecordBorrowRejection(RejectBookNotFound)
		return nil, model.NewBookNotFoundError()
	}

	active, err := s.borrowRepo.FindActive(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active borrow: %w", err)
	}
	if active != nil {
		s.metrics.RecordBorrowRejection(RejectAlreadyBorrowed)
		return nil, model.NewAlreadyBorrowedError()
	}

	if book.AvailableCopies <= 0 {
		s.metrics.RecordBorrowRejection(RejectUnavailable)
		return nil, model.NewBookUnavailableError()
	}

	now := s.now().UTC()
	record := &model.BorrowRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		Status:     model.BorrowStatusBorrowed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// 上の確認と実際の更新の間に他のリクエストが割り込んだ場合はリポジトリのエラーで検出する
	if err := s.borrowRepo.CreateWithDecrement(ctx, record); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoCopiesLeft):
			s.metrics.RecordBorrowRejection(RejectUnavailable)
			return nil, model.NewBookUnavailableError()
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.RecordBorrowRejection(RejectAlreadyBorrowed)
			return nil, model.NewAlreadyBorrowedError()
		case errors.Is(err, repository.ErrNotFound):
			s.metrics.RecordBorrowRejection(RejectBookNotFound)
			return nil, model.NewBookNotFoundError()
		default:
			return nil, fmt.Errorf("failed to create borrow record: %w", err)
		}
	}

	s.metrics.RecordBorrow()
	slog.Info("book borrowed",
		slog.String("borrow_record_id", record.ID),
		slog.String("user_id", userID),
		slog.String("book_id", bookID),
	)
	return record, nil
}

// Return は貸出記録を返却済みにし、在庫数を1増やす。
// 一般利用者は自分の貸出記録のみ返却でき、他人の記録は存在しないものとして扱う。
// 管理者はすべての記録を返却できる。
func (s *Service) Return(ctx context.Context, userID string, role model.Role, recordID string) (*model.BorrowRecord, error) {
	if err := validateID(recordID, "Borrow Record ID is required", "Invalid Borrow Record ID format"); err != nil {
		return nil, err
	}

	record, err := s.borrowRepo.FindByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to find borrow record: %w", err)
	}
	if record == nil {
		return nil, model.NewBorrowRecordNotFoundError()
	}
	if role != model.RoleAdmin && record.UserID != userID {
		return nil, model.NewBorrowRecordNotFoundError()
	}
	if record.Status == model.BorrowStatusReturned {
		return nil, model.NewAlreadyReturnedError()
	}

	returnedAt := s.now().UTC()
	// 時計が巻き戻った場合でも返却日が貸出日より前にならないようにする
	if returnedAt.Before(record.BorrowDate) {
		returnedAt = record.BorrowDate
	}

	updated, err := s.borrowRepo.MarkReturnedWithIncrement(ctx, recordID, returnedAt)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotBorrowed):
			return nil, model.NewAlreadyReturnedError()
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewBorrowRecordNotFoundError()
		default:
			return nil, fmt.Errorf("failed to return book: %w", err)
		}
	}

	s.metrics.RecordReturn()
	slog.Info("book returned",
		slog.String("borrow_record_id", updated.ID),
		slog.String("user_id", updated.UserID),
		slog.String("book_id", updated.BookID),
	)
	return updated, nil
}

// ListForUser はユーザーの貸出記録を書籍のタイトル・著者付きで、貸出日の新しい順に返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.BorrowRecordWithBook, error) {
	records, err := s.borrowRepo.ListByUserWithBook(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow records: %w", err)
	}
	return records, nil
}

// validateID はID入力の必須チェックと形式チェックを行う。
func validateID(id, requiredMsg, formatMsg string) error {
	v := &model.ValidationError{}
	switch {
	case id == "":
		v.Add(requiredMsg)
	case uuid.Validate(id) != nil:
		v.Add(formatMsg)
	}
	return v.OrNil()
}
