// Package security はプロフィール入力の衛生処理を提供する。
//
// TextSanitizer はfull_nameやbioからHTMLマークアップを除去し、
// URLGuard はavatar_urlに内部ネットワークを指すURLが保存されることを防ぐ。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト項目のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグを除去したプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyはスレッドセーフに使用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエンティティの多重エンコードを剥がす最大回数。
const maxSanitizePasses = 8

// Sanitize はタグを除去し、bluemondayがエスケープした文字実体参照を元に戻す。
// 値はJSONとして返却されるため、&や'をエンティティのまま保存しない。
// 戻した文字列が新たなタグになり得るため、タグ除去と復元を変化が無くなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cur := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(cur))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	// 収束しない入力はエスケープしたまま返す。
	return strings.TrimSpace(s.policy.Sanitize(cur))
}
