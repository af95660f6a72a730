package model

import "time"

// Profile はprofilesテーブルの1行を表す。
// 行の作成と72時間後の削除は外部プラットフォームが行う。
type Profile struct {
	ID         string     `json:"id"`
	Email      *string    `json:"email"`
	FullName   *string    `json:"full_name"`
	Bio        *string    `json:"bio"`
	AvatarURL  *string    `json:"avatar_url"`
	Role       string     `json:"role"`
	IsApproved bool       `json:"is_approved"`
	RejectedAt *time.Time `json:"rejected_at"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// ModerationState はプロフィールのモデレーション状態（派生値）。
type ModerationState string

const (
	ModerationPending  ModerationState = "pending"
	ModerationApproved ModerationState = "approved"
	ModerationRejected ModerationState = "rejected"
)

// State はis_approvedとrejected_atからモデレーション状態を導出する。
// rejected_atが設定されていればis_approvedに関係なくrejectedとする。
func (p *Profile) State() ModerationState {
	switch {
	case p.RejectedAt != nil:
		return ModerationRejected
	case p.IsApproved:
		return ModerationApproved
	default:
		return ModerationPending
	}
}

// SynthesizedProfile はプロフィール行がまだ作成されていない場合に返す代替ビュー。
type SynthesizedProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsApproved bool   `json:"is_approved"`
}

// NewSynthesizedProfile はIdentityから代替ビューを生成する。
// ロールのメタデータが無い場合は"user"とする。
func NewSynthesizedProfile(identity *Identity) *SynthesizedProfile {
	role := identity.Role
	if role == "" {
		role = RoleUser
	}
	return &SynthesizedProfile{
		ID:         identity.ID,
		Email:      identity.Email,
		Role:       role,
		IsApproved: false,
	}
}

// ProfilePatch はユーザー自身が更新できるフィールドの部分更新内容。
// nilのフィールドは変更しない（nullで上書きしない）。
type ProfilePatch struct {
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// IsEmpty は更新対象のフィールドが1つも無い場合にtrueを返す。
func (p ProfilePatch) IsEmpty() bool {
	return p.FullName == nil && p.Bio == nil && p.AvatarURL == nil
}

// Fields は指定されたフィールドのみをカラム名をキーとするマップで返す。
func (p ProfilePatch) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if p.FullName != nil {
		fields["full_name"] = *p.FullName
	}
	if p.Bio != nil {
		fields["bio"] = *p.Bio
	}
	if p.AvatarURL != nil {
		fields["avatar_url"] = *p.AvatarURL
	}
	return fields
}

// ModerationUpdate はモデレーション操作による更新内容。
type ModerationUpdate struct {
	IsApproved bool
	// SetRejectedAt がtrueの場合のみrejected_atを更新する。
	// RejectedAtがnilならNULLに戻す。
	SetRejectedAt bool
	RejectedAt    *time.Time
	UpdatedAt     time.Time
}

// Fields は更新内容をカラム名をキーとするマップで返す。
// 時刻はUTCのRFC3339形式に揃える。
func (u ModerationUpdate) Fields() map[string]any {
	fields := map[string]any{
		"is_approved": u.IsApproved,
		"updated_at":  u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if u.SetRejectedAt {
		if u.RejectedAt == nil {
			fields["rejected_at"] = nil
		} else {
			fields["rejected_at"] = u.RejectedAt.UTC().Format(time.RFC3339Nano)
		}
	}
	return fields
}
