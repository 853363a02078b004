package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultThreshold は期限切れ間近と判定する残り時間のデフォルト値。
const DefaultThreshold = 60 * time.Second

// ExpiresAt はトークンに埋め込まれたexpクレームを署名検証なしで取り出す。
// デコードできない場合やexpが無い場合はfalseを返す。
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpiring はトークンの残り有効期間がthreshold未満かどうかを判定する。
// トークンが空、デコード不能、expクレームが無い場合も期限切れ間近として扱う。
// 判定は秒単位で行う。
func IsExpiring(token string, threshold time.Duration, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return true
	}
	remaining := exp.Unix() - now.Unix()
	return remaining < int64(threshold/time.Second)
}

// Fingerprint はトークンのSHA-256ハッシュを16進文字列で返す。
// ログや監査記録でトークン自体を残さずにセッションを識別するために使う。
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// shortFingerprint はログ出力用に短縮したFingerprintを返す。
func shortFingerprint(token string) string {
	return Fingerprint(token)[:8]
}
