// Package repository はprofilesテーブルへのアクセスのインターフェースと実装を提供する。
//
// 自分のプロフィール操作（SelfProfileRepository）は呼び出し元の資格情報でRLSの下で実行し、
// モデレーション操作（AdminProfileRepository）は特権資格情報で実行する。
package repository

import (
	"context"

	"github.com/netfluenz/netfluenz-api/internal/model"
)

// profilesTable はプロフィールを保持するテーブル名。
const profilesTable = "profiles"

// SelfProfileRepository は呼び出し元自身のプロフィールの永続化インターフェース。
// 実装は行レベルセキュリティが適用される資格情報を使用しなければならない。
type SelfProfileRepository interface {
	// FindOwn は呼び出し元のプロフィールを取得する。見つからない場合はnilを返す。
	FindOwn(ctx context.Context, identity *model.Identity) (*model.Profile, error)

	// UpdateOwn は呼び出し元のプロフィールのfieldsで指定されたカラムのみを更新する。
	// 一致する行が無い場合はnilを返す。
	UpdateOwn(ctx context.Context, identity *model.Identity, fields map[string]any) (*model.Profile, error)
}

// AdminProfileRepository はモデレーション用の永続化インターフェース。
// 実装はRLSをバイパスする特権資格情報を使用する。
type AdminProfileRepository interface {
	// FindRoleByID は指定IDのプロフィールのroleを返す。行が無い場合はfoundがfalse。
	FindRoleByID(ctx context.Context, id string) (role string, found bool, err error)

	// ListPending は承認待ち（is_approved=false かつ rejected_at IS NULL）の行をcreated_at降順で返す。
	ListPending(ctx context.Context) ([]*model.Profile, error)

	// ListActive はゴミ箱以外（rejected_at IS NULL）の行をcreated_at降順で返す。
	ListActive(ctx context.Context) ([]*model.Profile, error)

	// ListRecycled はゴミ箱内（rejected_at IS NOT NULL）の行をrejected_at降順で返す。
	ListRecycled(ctx context.Context) ([]*model.Profile, error)

	// UpdateModeration はモデレーション項目を更新し、更新後の行を返す。
	// 一致する行が無い場合はnilを返す。
	UpdateModeration(ctx context.Context, id string, update model.ModerationUpdate) (*model.Profile, error)

	// Ping はprofilesテーブルに特権資格情報でアクセスできることを確認する。
	Ping(ctx context.Context) error
}

// selfUpdatableColumns はユーザー自身が更新できるカラム。
var selfUpdatableColumns = map[string]bool{
	"full_name":  true,
	"bio":        true,
	"avatar_url": true,
}
