// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限種別を表す。
type Role string

const (
	// RoleUser は一般利用者の権限。
	RoleUser Role = "user"
	// RoleAdmin は蔵書を管理できる管理者の権限。
	RoleAdmin Role = "admin"
)

// Valid は定義済みのロールかどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User は図書館の利用者を表す。
// PasswordHashはbcryptハッシュであり、平文のパスワードは保持しない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
