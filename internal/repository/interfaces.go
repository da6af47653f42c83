// Package repository はデータ永続化のインターフェースとSQL実装を定義する。
// SQL実装はPostgreSQLとSQLiteの両方で動作するクエリのみを使用する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/bookshelf/internal/model"
)

var (
	// ErrNotFound は更新・削除対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約に違反したことを表す。
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced は他のレコードから参照されているため削除できないことを表す。
	ErrReferenced = errors.New("record is referenced")
	// ErrNoCopiesLeft は在庫数が0のため貸出できないことを表す。
	ErrNoCopiesLeft = errors.New("no copies left")
	// ErrNotBorrowed は貸出記録が既に返却済みであることを表す。
	ErrNotBorrowed = errors.New("borrow record is not active")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)

	// List は全書籍を登録順に返す。
	List(ctx context.Context) ([]*model.Book, error)

	// Create は書籍を作成する。
	Create(ctx context.Context, book *model.Book) error

	// Update は書籍のタイトル・著者・在庫数を更新する。存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, book *model.Book) error

	// Delete は指定IDの書籍を削除する。
	// 存在しない場合はErrNotFound、貸出記録から参照されている場合はErrReferencedを返す。
	Delete(ctx context.Context, id string) error
}

// BorrowRepository は貸出台帳の永続化インターフェース。
type BorrowRepository interface {
	// FindByID は指定IDの貸出記録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.BorrowRecord, error)

	// FindActive はユーザーと書籍の組で貸出中の記録を取得する。見つからない場合はnilを返す。
	FindActive(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error)

	// CreateWithDecrement は書籍の在庫数を1減らし、貸出記録を追加する。
	// 両方を同一トランザクションで実行し、どちらかが失敗した場合は何も変更しない。
	// 在庫が0の場合はErrNoCopiesLeft、書籍が存在しない場合はErrNotFound、
	// 同一ユーザー・同一書籍の貸出中記録が既にある場合はErrDuplicateを返す。
	CreateWithDecrement(ctx context.Context, record *model.BorrowRecord) error

	// MarkReturnedWithIncrement は貸出記録を返却済みにし、書籍の在庫数を1増やす。
	// 両方を同一トランザクションで実行し、更新後の貸出記録を返す。
	// 記録が存在しない場合はErrNotFound、既に返却済みの場合はErrNotBorrowedを返す。
	MarkReturnedWithIncrement(ctx context.Context, id string, returnedAt time.Time) (*model.BorrowRecord, error)

	// ListByUserWithBook はユーザーの貸出記録を書籍のタイトル・著者付きで返す。
	// borrow_date降順で並べる。
	ListByUserWithBook(ctx context.Context, userID string) ([]model.BorrowRecordWithBook, error)
}
