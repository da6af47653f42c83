package model

import "time"

// BorrowStatus は貸出記録の状態を表す。
type BorrowStatus string

const (
	// BorrowStatusBorrowed は貸出中の状態。
	BorrowStatusBorrowed BorrowStatus = "borrowed"
	// BorrowStatusReturned は返却済みの状態。
	BorrowStatusReturned BorrowStatus = "returned"
)

// BorrowRecord は貸出台帳の1件を表す。
// 同一ユーザー・同一書籍でstatus=borrowedの記録は同時に1件までしか存在しない。
type BorrowRecord struct {
	ID         string
	UserID     string
	BookID     string
	BorrowDate time.Time
	ReturnDate *time.Time
	Status     BorrowStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BorrowRecordWithBook は貸出記録と書籍のタイトル・著者を結合したモデル。
// booksテーブルとJOINして取得される。
type BorrowRecordWithBook struct {
	BorrowRecord
	BookTitle  string
	BookAuthor string
}
