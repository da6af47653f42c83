package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsTags はタグが除去されテキストのみが残ることを検証する。
func TestSanitize_StripsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "The Go Programming Language",
			want:  "The Go Programming Language",
		},
		{
			name:  "装飾タグが除去される",
			input: "<b>Clean</b> <i>Code</i>",
			want:  "Clean Code",
		},
		{
			name:  "前後の空白が除去される",
			input: "  Refactoring \n",
			want:  "Refactoring",
		},
		{
			name:  "アンパサンドはエスケープされない",
			input: "Tom & Jerry",
			want:  "Tom & Jerry",
		},
		{
			name:  "日本語のテキスト",
			input: "<p>吾輩は猫である</p>",
			want:  "吾輩は猫である",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
		{
			name:  "タグのみの入力は空になる",
			input: "<br/><hr>",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_RemovesScript はscriptタグとイベント属性が残らないことを検証する。
func TestSanitize_RemovesScript(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		`<script>alert("xss")</script>Dune`,
		`<img src=x onerror="alert(1)">Dune`,
		`<a href="javascript:alert(1)">Dune</a>`,
	}
	for _, input := range inputs {
		got := sanitizer.Sanitize(input)
		for _, forbidden := range []string{"<script", "onerror", "javascript:", "<img", "<a"} {
			if strings.Contains(got, forbidden) {
				t.Errorf("Sanitize(%q) = %q, contains %q", input, got, forbidden)
			}
		}
		if !strings.Contains(got, "Dune") {
			t.Errorf("Sanitize(%q) = %q, text was lost", input, got)
		}
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := "<em>Design</em> Patterns"

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}
