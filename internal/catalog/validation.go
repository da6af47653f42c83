package catalog

import (
	"strings"

	"github.com/hitoshi/bookshelf/internal/model"
)

// BookInput は書籍の作成・更新時の入力値。
type BookInput struct {
	Title           string
	Author          string
	AvailableCopies model.Copies
}

// Validate は書籍の入力値を検証する。
// エラーはフィールド名（title, author, availableCopies）ごとに1件返す。
func Validate(input BookInput) error {
	v := &model.ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		v.AddField("title", "Title is required")
	}
	if strings.TrimSpace(input.Author) == "" {
		v.AddField("author", "Author is required")
	}

	switch c := input.AvailableCopies; {
	case !c.Present:
		v.AddField("availableCopies", "Available copies is required")
	case !c.Numeric:
		v.AddField("availableCopies", "Available copies must be a valid number")
	case c.Value < 0:
		v.AddField("availableCopies", "Available copies must be greater than or equal to 0")
	}

	return v.OrNil()
}
