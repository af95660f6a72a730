// Package profile は呼び出し元自身のプロフィールの取得と更新を提供する。
package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/repository"
	"github.com/netfluenz/netfluenz-api/internal/security"
)

// Result はGetOwnの結果。プロフィール行が存在する場合はProfile、
// まだ作成されていない場合はSynthesizedのいずれか一方が設定される。
type Result struct {
	Profile     *model.Profile
	Synthesized *model.SynthesizedProfile
}

// Value はJSONとして返す値を返す。
func (r *Result) Value() any {
	if r.Profile != nil {
		return r.Profile
	}
	return r.Synthesized
}

// Service はプロフィールのサービス層。
type Service struct {
	repo      repository.SelfProfileRepository
	sanitizer security.TextSanitizer
	urlGuard  security.URLGuard
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.SelfProfileRepository,
	sanitizer security.TextSanitizer,
	urlGuard security.URLGuard,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
	}
}

// GetOwn は呼び出し元のプロフィールを返す。
// 行が無い場合はIdentityから組み立てた代替ビューを返す。
func (s *Service) GetOwn(ctx context.Context, identity *model.Identity) (*Result, error) {
	p, err := s.repo.FindOwn(ctx, identity)
	if err != nil {
		slog.Error("failed to fetch own profile",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInternalError(err.Error())
	}
	if p == nil {
		return &Result{Synthesized: model.NewSynthesizedProfile(identity)}, nil
	}
	return &Result{Profile: p}, nil
}

// UpdateOwn は呼び出し元のプロフィールのうち、patchで指定された項目のみを更新する。
func (s *Service) UpdateOwn(ctx context.Context, identity *model.Identity, patch model.ProfilePatch) (*model.Profile, error) {
	if patch.IsEmpty() {
		return nil, model.NewNoDataProvidedError()
	}

	patch = s.clean(patch)
	if patch.AvatarURL != nil && *patch.AvatarURL != "" {
		if err := s.urlGuard.ValidateURL(*patch.AvatarURL); err != nil {
			slog.Warn("avatar url rejected",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewInvalidRequestError("avatar_url must be a public http(s) URL")
		}
	}

	p, err := s.repo.UpdateOwn(ctx, identity, patch.Fields())
	if err != nil {
		slog.Error("failed to update own profile",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInternalError(err.Error())
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}

	slog.Info("profile updated",
		slog.String("user_id", identity.ID),
		slog.Int("fields", len(patch.Fields())),
	)
	return p, nil
}

// clean はテキスト項目からHTMLを除去したpatchを返す。
func (s *Service) clean(patch model.ProfilePatch) model.ProfilePatch {
	if patch.FullName != nil {
		v := s.sanitizer.Sanitize(*patch.FullName)
		patch.FullName = &v
	}
	if patch.Bio != nil {
		v := s.sanitizer.Sanitize(*patch.Bio)
		patch.Bio = &v
	}
	if patch.AvatarURL != nil {
		v := strings.TrimSpace(*patch.AvatarURL)
		patch.AvatarURL = &v
	}
	return patch
}
