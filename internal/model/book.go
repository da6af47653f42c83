package model

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Book は蔵書を表す。
// AvailableCopiesは貸出ワークフローと管理者の編集によってのみ変更される。
type Book struct {
	ID              string
	Title           string
	Author          string
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Copies はリクエストで受け取った在庫数の入力値を表す。
// JSONの値が存在したか、数値として解釈できたかを保持し、バリデーションで使用する。
type Copies struct {
	Present bool
	Numeric bool
	Value   int
}

// NewCopies は有効な数値の在庫数を生成する。
func NewCopies(n int) Copies {
	return Copies{Present: true, Numeric: true, Value: n}
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
// 数値でない値や小数はエラーにせず、Numeric=falseとして記録する。
func (c *Copies) UnmarshalJSON(b []byte) error {
	*c = Copies{}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	c.Present = true

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	c.Numeric = true
	c.Value = int(f)
	return nil
}

// MarshalJSON はjson.Marshalerを実装する。
func (c Copies) MarshalJSON() ([]byte, error) {
	if !c.Present {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}
