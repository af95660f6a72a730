package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Query はデータAPIへの問い合わせ条件を組み立てる。
// フィルタはPostgRESTの演算子構文（column=eq.value など）で表現する。
type Query struct {
	table  string
	params url.Values
}

// From は指定テーブルに対するQueryを生成する。
func From(table string) *Query {
	return &Query{table: table, params: url.Values{}}
}

// Table は対象テーブル名を返す。
func (q *Query) Table() string {
	return q.table
}

// Select は取得カラムを指定する。
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq は column = value の条件を追加する。
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// IsNull は column IS NULL の条件を追加する。
func (q *Query) IsNull(column string) *Query {
	q.params.Add(column, "is.null")
	return q
}

// NotNull は column IS NOT NULL の条件を追加する。
func (q *Query) NotNull(column string) *Query {
	q.params.Add(column, "not.is.null")
	return q
}

// Order は並び順を指定する。
func (q *Query) Order(column string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Limit は取得件数の上限を指定する。
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Encode はクエリ文字列を返す。キー順にソートされるため出力は決定的。
func (q *Query) Encode() string {
	return q.params.Encode()
}

func (q *Query) path() string {
	p := restPath + "/" + url.PathEscape(q.table)
	if enc := q.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}

// Select は条件に一致する行を取得し、destにデコードする。
// destは構造体スライスへのポインタを想定する。
func (c *Client) Select(ctx context.Context, cred Credential, q *Query, dest any) error {
	return c.do(ctx, "rest", http.MethodGet, q.path(), cred, nil, nil, dest)
}

// Update は条件に一致する行をfieldsで部分更新し、更新後の行をdestにデコードする。
// 一致する行が無い場合、destには空スライスがデコードされる。
func (c *Client) Update(ctx context.Context, cred Credential, q *Query, fields map[string]any, dest any) error {
	headers := map[string]string{"Prefer": "return=representation"}
	return c.do(ctx, "rest", http.MethodPatch, q.path(), cred, fields, headers, dest)
}
