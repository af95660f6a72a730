package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/netfluenz/netfluenz-api/internal/model"
)

// profileColumns はSELECT/RETURNINGで取得するカラム。scanProfileの順序と一致させること。
const profileColumns = `id, email, full_name, bio, avatar_url, role, is_approved, rejected_at, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresProfileRepo はプラットフォームのPostgreSQLに直接接続するプロフィールリポジトリ。
// 自分のプロフィール操作はトランザクション内でauthenticatedロールとJWTクレームを設定し、
// データAPI経由と同じRLSポリシーが評価されるようにする。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindOwn は呼び出し元のRLSコンテキストでプロフィールを取得する。
func (r *PostgresProfileRepo) FindOwn(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	var profile *model.Profile
	err := r.withUserScope(ctx, identity, func(tx *sql.Tx) error {
		p, err := scanProfile(tx.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
			identity.ID,
		))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// UpdateOwn は呼び出し元のRLSコンテキストでプロフィールを部分更新する。
func (r *PostgresProfileRepo) UpdateOwn(ctx context.Context, identity *model.Identity, fields map[string]any) (*model.Profile, error) {
	query, args, err := buildSelfUpdate(identity.ID, fields)
	if err != nil {
		return nil, err
	}

	var profile *model.Profile
	err = r.withUserScope(ctx, identity, func(tx *sql.Tx) error {
		p, err := scanProfile(tx.QueryRowContext(ctx, query, args...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// FindRoleByID は指定IDのroleを取得する。
func (r *PostgresProfileRepo) FindRoleByID(ctx context.Context, id string) (string, bool, error) {
	var role sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = $1`, id).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find profile role: %w", err)
	}
	return role.String, true, nil
}

// ListPending は承認待ちのプロフィールを返す。
func (r *PostgresProfileRepo) ListPending(ctx context.Context) ([]*model.Profile, error) {
	return r.list(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE is_approved = false AND rejected_at IS NULL
		 ORDER BY created_at DESC`)
}

// ListActive はゴミ箱以外のプロフィールを返す。
func (r *PostgresProfileRepo) ListActive(ctx context.Context) ([]*model.Profile, error) {
	return r.list(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE rejected_at IS NULL
		 ORDER BY created_at DESC`)
}

// ListRecycled はゴミ箱内のプロフィールを返す。
func (r *PostgresProfileRepo) ListRecycled(ctx context.Context) ([]*model.Profile, error) {
	return r.list(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE rejected_at IS NOT NULL
		 ORDER BY rejected_at DESC`)
}

// UpdateModeration はモデレーション項目を更新する。
func (r *PostgresProfileRepo) UpdateModeration(ctx context.Context, id string, update model.ModerationUpdate) (*model.Profile, error) {
	var row *sql.Row
	if update.SetRejectedAt {
		row = r.db.QueryRowContext(ctx,
			`UPDATE profiles SET is_approved = $2, rejected_at = $3, updated_at = $4
			 WHERE id = $1
			 RETURNING `+profileColumns,
			id, update.IsApproved, update.RejectedAt, update.UpdatedAt,
		)
	} else {
		row = r.db.QueryRowContext(ctx,
			`UPDATE profiles SET is_approved = $2, updated_at = $3
			 WHERE id = $1
			 RETURNING `+profileColumns,
			id, update.IsApproved, update.UpdatedAt,
		)
	}

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update moderation state: %w", err)
	}
	return profile, nil
}

// Ping はprofilesテーブルにクエリを発行できることを確認する。
func (r *PostgresProfileRepo) Ping(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM profiles LIMIT 1`)
	if err != nil {
		return fmt.Errorf("failed to query profiles table: %w", err)
	}
	return rows.Close()
}

func (r *PostgresProfileRepo) list(ctx context.Context, query string) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// withUserScope はトランザクション内でauthenticatedロールと呼び出し元のJWTクレームを設定してfnを実行する。
// 設定はSET LOCAL / set_config(..., true)のためトランザクション終了時に破棄される。
func (r *PostgresProfileRepo) withUserScope(ctx context.Context, identity *model.Identity, fn func(tx *sql.Tx) error) error {
	claims, err := json.Marshal(map[string]string{
		"sub":   identity.ID,
		"email": identity.Email,
		"role":  "authenticated",
	})
	if err != nil {
		return fmt.Errorf("failed to encode jwt claims: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, string(claims)); err != nil {
		return fmt.Errorf("failed to set jwt claims: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SET LOCAL ROLE authenticated`); err != nil {
		return fmt.Errorf("failed to switch role: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// buildSelfUpdate は自分のプロフィールの部分更新SQLを組み立てる。
// カラムは許可リストで検証し、名前順に並べる。
func buildSelfUpdate(id string, fields map[string]any) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !selfUpdatableColumns[col] {
			return "", nil, fmt.Errorf("column %q is not updatable by profile owner", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := []any{id}
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		args = append(args, fields[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + profileColumns
	return query, args, nil
}

// scanProfile は1行をmodel.Profileに読み込む。
func scanProfile(s rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var role sql.NullString
	err := s.Scan(
		&p.ID, &p.Email, &p.FullName, &p.Bio, &p.AvatarURL,
		&role, &p.IsApproved, &p.RejectedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Role = role.String
	return p, nil
}

// compile-time interface check
var (
	_ SelfProfileRepository  = (*PostgresProfileRepo)(nil)
	_ AdminProfileRepository = (*PostgresProfileRepo)(nil)
)
