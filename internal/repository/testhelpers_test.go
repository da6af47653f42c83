package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookshelf/internal/database"
	"github.com/hitoshi/bookshelf/internal/model"
)

// newTestDB はマイグレーション適用済みのインメモリSQLiteを返す。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := database.Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.MigrateSQLite(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

var baseTime = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func createTestUser(t *testing.T, db *sql.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$10$hash",
		Role:         model.RoleUser,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	if err := NewSQLUserRepo(db).Create(t.Context(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestBook(t *testing.T, db *sql.DB, title string, copies int) *model.Book {
	t.Helper()
	book := &model.Book{
		ID:              uuid.NewString(),
		Title:           title,
		Author:          "Author of " + title,
		AvailableCopies: copies,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
	if err := NewSQLBookRepo(db).Create(t.Context(), book); err != nil {
		t.Fatalf("failed to create book: %v", err)
	}
	return book
}

func newBorrowRecord(userID, bookID string, at time.Time) *model.BorrowRecord {
	return &model.BorrowRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: at,
		Status:     model.BorrowStatusBorrowed,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}
