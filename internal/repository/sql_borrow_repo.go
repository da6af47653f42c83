package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/bookshelf/internal/model"
)

// SQLBorrowRepo はSQLデータベースを使用した貸出台帳リポジトリ。
type SQLBorrowRepo struct {
	db *sql.DB
}

// NewSQLBorrowRepo はSQLBorrowRepoを生成する。
func NewSQLBorrowRepo(db *sql.DB) *SQLBorrowRepo {
	return &SQLBorrowRepo{db: db}
}

const borrowColumns = `id, user_id, book_id, borrow_date, return_date, status, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBorrowRecord(s rowScanner, extra ...any) (*model.BorrowRecord, error) {
	record := &model.BorrowRecord{}
	var returnDate sql.NullTime
	dest := []any{
		&record.ID, &record.UserID, &record.BookID, &record.BorrowDate,
		&returnDate, &record.Status, &record.CreatedAt, &record.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if returnDate.Valid {
		t := returnDate.Time
		record.ReturnDate = &t
	}
	return record, nil
}

// FindByID は指定IDの貸出記録を取得する。見つからない場合はnilを返す。
func (r *SQLBorrowRepo) FindByID(ctx context.Context, id string) (*model.BorrowRecord, error) {
	record, err := scanBorrowRecord(r.db.QueryRowContext(ctx,
		`SELECT `+borrowColumns+` FROM borrow_records WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find borrow record by ID: %w", err)
	}
	return record, nil
}

// FindActive はユーザーと書籍の組で貸出中の記録を取得する。見つからない場合はnilを返す。
func (r *SQLBorrowRepo) FindActive(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error) {
	record, err := scanBorrowRecord(r.db.QueryRowContext(ctx,
		`SELECT `+borrowColumns+` FROM borrow_records
		 WHERE user_id = $1 AND book_id = $2 AND status = $3`,
		userID, bookID, string(model.BorrowStatusBorrowed),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active borrow record: %w", err)
	}
	return record, nil
}

// CreateWithDecrement は書籍の在庫数を1減らし、貸出記録を追加する。
// 在庫の減算はavailable_copies > 0を条件とした単一のUPDATEで行うため、
// 同時に貸出リクエストが来ても在庫が負になることはない。
func (r *SQLBorrowRepo) CreateWithDecrement(ctx context.Context, record *model.BorrowRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1, updated_at = $2
		 WHERE id = $1 AND available_copies > 0`,
		record.BookID, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement available copies: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = $1`, record.BookID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check book existence: %w", err)
		}
		return ErrNoCopiesLeft
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO borrow_records (id, user_id, book_id, borrow_date, return_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULL, $5, $6, $7)`,
		record.ID, record.UserID, record.BookID, record.BorrowDate,
		string(record.Status), record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert borrow record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkReturnedWithIncrement は貸出記録を返却済みにし、書籍の在庫数を1増やす。
// 状態の更新はstatus = 'borrowed'を条件とするため、同じ記録を二重に返却しても在庫は1回しか増えない。
func (r *SQLBorrowRepo) MarkReturnedWithIncrement(ctx context.Context, id string, returnedAt time.Time) (*model.BorrowRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE borrow_records SET status = $3, return_date = $2, updated_at = $2
		 WHERE id = $1 AND status = $4`,
		id, returnedAt, string(model.BorrowStatusReturned), string(model.BorrowStatusBorrowed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark borrow record returned: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM borrow_records WHERE id = $1`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check borrow record existence: %w", err)
		}
		return nil, ErrNotBorrowed
	}

	record, err := scanBorrowRecord(tx.QueryRowContext(ctx,
		`SELECT `+borrowColumns+` FROM borrow_records WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to reload borrow record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1, updated_at = $2 WHERE id = $1`,
		record.BookID, returnedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to increment available copies: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return record, nil
}

// ListByUserWithBook はユーザーの貸出記録を書籍のタイトル・著者付きで返す。
func (r *SQLBorrowRepo) ListByUserWithBook(ctx context.Context, userID string) ([]model.BorrowRecordWithBook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.return_date, br.status,
		        br.created_at, br.updated_at, b.title, b.author
		 FROM borrow_records br
		 JOIN books b ON b.id = br.book_id
		 WHERE br.user_id = $1
		 ORDER BY br.borrow_date DESC, br.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow records: %w", err)
	}
	defer rows.Close()

	records := []model.BorrowRecordWithBook{}
	for rows.Next() {
		var title, author string
		record, err := scanBorrowRecord(rows, &title, &author)
		if err != nil {
			return nil, fmt.Errorf("failed to scan borrow record row: %w", err)
		}
		records = append(records, model.BorrowRecordWithBook{
			BorrowRecord: *record,
			BookTitle:    title,
			BookAuthor:   author,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate borrow record rows: %w", err)
	}
	return records, nil
}

// compile-time interface check
var _ BorrowRepository = (*SQLBorrowRepo)(nil)
