// Package moderation は管理者によるプロフィールの承認・却下・復元と一覧取得を提供する。
//
// 状態遷移:
//
//	pending  --approve--> approved
//	pending  --reject---> rejected
//	approved --reject---> rejected
//	rejected --restore--> pending
//
// 遷移元の状態は検証しない（後勝ち）。rejected_atが設定された行は72時間後に外部で削除される。
package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/repository"
)

// Action はモデレーション操作の種別。
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRestore Action = "restore"
)

// 操作成功時のメッセージ
const (
	MessageApproved = "User approved successfully"
	MessageRejected = "User rejected and moved to recycle bin (72h auto-delete)"
	MessageRestored = "User restored from recycle bin"
)

// ActionRecorder は完了したモデレーション操作を記録するインターフェース。
// metrics.Collectorが実装する。
type ActionRecorder interface {
	RecordModerationAction(action string)
}

// ActionResult はモデレーション操作のレスポンス。
type ActionResult struct {
	Message string         `json:"message"`
	User    *model.Profile `json:"user"`
}

// Service はモデレーションのサービス層。
type Service struct {
	repo     repository.AdminProfileRepository
	recorder ActionRecorder
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(repo repository.AdminProfileRepository, recorder ActionRecorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		now:      time.Now,
	}
}

// ListPending は承認待ちのプロフィールを新しい順に返す。
func (s *Service) ListPending(ctx context.Context) ([]*model.Profile, error) {
	return s.list(ctx, "pending", s.repo.ListPending)
}

// ListAll はゴミ箱以外の全プロフィールを新しい順に返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Profile, error) {
	return s.list(ctx, "all", s.repo.ListActive)
}

// ListRecycled はゴミ箱内のプロフィールを却下日時の新しい順に返す。
func (s *Service) ListRecycled(ctx context.Context) ([]*model.Profile, error) {
	return s.list(ctx, "recycled", s.repo.ListRecycled)
}

// Approve はプロフィールを承認する。
func (s *Service) Approve(ctx context.Context, actor *model.Identity, id string) (*ActionResult, error) {
	now := s.now().UTC()
	return s.apply(ctx, actor, id, ActionApprove, MessageApproved, model.ModerationUpdate{
		IsApproved: true,
		UpdatedAt:  now,
	})
}

// Reject はプロフィールを却下し、ゴミ箱に移動する。
func (s *Service) Reject(ctx context.Context, actor *model.Identity, id string) (*ActionResult, error) {
	now := s.now().UTC()
	return s.apply(ctx, actor, id, ActionReject, MessageRejected, model.ModerationUpdate{
		IsApproved:    false,
		SetRejectedAt: true,
		RejectedAt:    &now,
		UpdatedAt:     now,
	})
}

// Restore はゴミ箱からプロフィールを復元し、承認待ちに戻す。
func (s *Service) Restore(ctx context.Context, actor *model.Identity, id string) (*ActionResult, error) {
	now := s.now().UTC()
	return s.apply(ctx, actor, id, ActionRestore, MessageRestored, model.ModerationUpdate{
		IsApproved:    false,
		SetRejectedAt: true,
		RejectedAt:    nil,
		UpdatedAt:     now,
	})
}

func (s *Service) list(ctx context.Context, name string, fn func(context.Context) ([]*model.Profile, error)) ([]*model.Profile, error) {
	profiles, err := fn(ctx)
	if err != nil {
		slog.Error("failed to list profiles",
			slog.String("list", name),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInternalError(err.Error())
	}
	if profiles == nil {
		profiles = []*model.Profile{}
	}
	return profiles, nil
}

func (s *Service) apply(ctx context.Context, actor *model.Identity, id string, action Action, message string, update model.ModerationUpdate) (*ActionResult, error) {
	// プラットフォームのIDは全てUUIDのため、それ以外は一致する行が無い
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewUserNotFoundError()
	}

	p, err := s.repo.UpdateModeration(ctx, id, update)
	if err != nil {
		slog.Error("failed to apply moderation action",
			slog.String("action", string(action)),
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInternalError(err.Error())
	}
	if p == nil {
		return nil, model.NewUserNotFoundError()
	}

	adminID := ""
	if actor != nil {
		adminID = actor.ID
	}
	slog.Info("moderation action applied",
		slog.String("action", string(action)),
		slog.String("admin_id", adminID),
		slog.String("user_id", id),
	)
	if s.recorder != nil {
		s.recorder.RecordModerationAction(string(action))
	}

	return &ActionResult{Message: message, User: p}, nil
}
