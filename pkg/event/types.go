package event

import (
	"encoding/json"
	"time"
)

// Type はセッションのライフサイクルイベントの種類を表す。
type Type string

const (
	// TypeSessionRefreshed はアクセストークンが再発行されたことを表す。
	TypeSessionRefreshed Type = "SessionRefreshed"
	// TypeSessionRefreshFailed はアクセストークンの再発行に失敗したことを表す。
	// EnsureValid経由の失敗ではセッションも破棄される。
	TypeSessionRefreshFailed Type = "SessionRefreshFailed"
	// TypeSessionLoggedOut は利用者の明示的なログアウトでセッションが破棄されたことを表す。
	TypeSessionLoggedOut Type = "SessionLoggedOut"
)

// Event はセッションに起きた出来事の不変の記録を表す。
// 監査ログとしてGatewayのSQLiteに永続化される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// SessionKey はリフレッシュトークンのFingerprint。トークン自体は保持しない。
	SessionKey string `json:"session_key"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// SessionRefreshedData はSessionRefreshedイベントのデータ。
type SessionRefreshedData struct {
	// AccessTokenExpiresAt は新しいアクセストークンの有効期限。デコードできなかった場合は空。
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
}

// SessionRefreshFailedData はSessionRefreshFailedイベントのデータ。
type SessionRefreshFailedData struct {
	// Reason は再発行が失敗した理由。
	Reason string `json:"reason"`
}
