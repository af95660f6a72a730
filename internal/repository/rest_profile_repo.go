package repository

import (
	"context"
	"fmt"

	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/supabase"
)

// RestProfileRepo はデータAPI（PostgREST）を使用したプロフィールリポジトリ。
// SelfProfileRepositoryとAdminProfileRepositoryの両方を実装する。
type RestProfileRepo struct {
	client *supabase.Client
}

// NewRestProfileRepo はRestProfileRepoを生成する。
func NewRestProfileRepo(client *supabase.Client) *RestProfileRepo {
	return &RestProfileRepo{client: client}
}

// FindOwn は呼び出し元のアクセストークンでプロフィールを取得する。
func (r *RestProfileRepo) FindOwn(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	var rows []*model.Profile
	q := supabase.From(profilesTable).Select("*").Eq("id", identity.ID)
	if err := r.client.Select(ctx, r.client.UserCredential(identity.AccessToken), q, &rows); err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return firstRow(rows), nil
}

// UpdateOwn は呼び出し元のアクセストークンでプロフィールを部分更新する。
func (r *RestProfileRepo) UpdateOwn(ctx context.Context, identity *model.Identity, fields map[string]any) (*model.Profile, error) {
	for col := range fields {
		if !selfUpdatableColumns[col] {
			return nil, fmt.Errorf("column %q is not updatable by profile owner", col)
		}
	}

	var rows []*model.Profile
	q := supabase.From(profilesTable).Select("*").Eq("id", identity.ID)
	if err := r.client.Update(ctx, r.client.UserCredential(identity.AccessToken), q, fields, &rows); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return firstRow(rows), nil
}

// FindRoleByID は特権資格情報で指定IDのroleを取得する。
func (r *RestProfileRepo) FindRoleByID(ctx context.Context, id string) (string, bool, error) {
	var rows []struct {
		Role string `json:"role"`
	}
	q := supabase.From(profilesTable).Select("role").Eq("id", id)
	if err := r.client.Select(ctx, r.client.ServiceRoleCredential(), q, &rows); err != nil {
		return "", false, fmt.Errorf("failed to find profile role: %w", err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Role, true, nil
}

// ListPending は承認待ちのプロフィールを返す。
func (r *RestProfileRepo) ListPending(ctx context.Context) ([]*model.Profile, error) {
	q := supabase.From(profilesTable).Select("*").
		Eq("is_approved", "false").
		IsNull("rejected_at").
		Order("created_at", true)
	return r.list(ctx, q)
}

// ListActive はゴミ箱以外のプロフィールを返す。
func (r *RestProfileRepo) ListActive(ctx context.Context) ([]*model.Profile, error) {
	q := supabase.From(profilesTable).Select("*").
		IsNull("rejected_at").
		Order("created_at", true)
	return r.list(ctx, q)
}

// ListRecycled はゴミ箱内のプロフィールを返す。
func (r *RestProfileRepo) ListRecycled(ctx context.Context) ([]*model.Profile, error) {
	q := supabase.From(profilesTable).Select("*").
		NotNull("rejected_at").
		Order("rejected_at", true)
	return r.list(ctx, q)
}

// UpdateModeration は特権資格情報でモデレーション項目を更新する。
func (r *RestProfileRepo) UpdateModeration(ctx context.Context, id string, update model.ModerationUpdate) (*model.Profile, error) {
	var rows []*model.Profile
	q := supabase.From(profilesTable).Select("*").Eq("id", id)
	if err := r.client.Update(ctx, r.client.ServiceRoleCredential(), q, update.Fields(), &rows); err != nil {
		return nil, fmt.Errorf("failed to update moderation state: %w", err)
	}
	return firstRow(rows), nil
}

// Ping はprofilesテーブルから1行だけ取得できることを確認する。
func (r *RestProfileRepo) Ping(ctx context.Context) error {
	var rows []struct {
		ID string `json:"id"`
	}
	q := supabase.From(profilesTable).Select("id").Limit(1)
	if err := r.client.Select(ctx, r.client.ServiceRoleCredential(), q, &rows); err != nil {
		return fmt.Errorf("failed to query profiles table: %w", err)
	}
	return nil
}

func (r *RestProfileRepo) list(ctx context.Context, q *supabase.Query) ([]*model.Profile, error) {
	rows := []*model.Profile{}
	if err := r.client.Select(ctx, r.client.ServiceRoleCredential(), q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	if rows == nil {
		rows = []*model.Profile{}
	}
	return rows, nil
}

func firstRow(rows []*model.Profile) *model.Profile {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// compile-time interface check
var (
	_ SelfProfileRepository  = (*RestProfileRepo)(nil)
	_ AdminProfileRepository = (*RestProfileRepo)(nil)
)
