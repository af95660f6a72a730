package model

// Identity は認証サービスが検証した呼び出し元を表す。
// リクエストごとに生成され、永続化されない。
type Identity struct {
	ID    string
	Email string
	// Role は認証サービスのuser_metadata.roleの値。未設定の場合は空文字列。
	Role string
	// AccessToken は検証済みのベアラートークン。
	// 自分のプロフィール操作をRLSの下で実行するためにのみ使用する。
	AccessToken string
}

// ロール
const (
	RoleUser       = "user"
	RoleInfluencer = "influencer"
	RoleBrand      = "brand"
	// RoleAdmin はモデレーション操作を許可される特権ロール。完全一致で比較する。
	RoleAdmin = "admin"
)
