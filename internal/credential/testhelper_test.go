package credential

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testNow はテストで固定する現在時刻。
var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// fixedClock はtestNowを返す時刻関数。
func fixedClock() time.Time { return testNow }

// newTestToken はtestNowからttl後に期限切れとなるJWTを生成する。
// 署名鍵はテスト用の固定値であり、Storeは署名を検証しない。
func newTestToken(t *testing.T, ttl time.Duration) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(testNow.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(testNow),
		Subject:   "user-1",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("テスト用JWT生成に失敗: %v", err)
	}
	return signed
}

// fakeRefresher は呼び出し回数を記録するRefresher実装。
type fakeRefresher struct {
	calls atomic.Int32
	// token は返すアクセストークン。
	token string
	// err は返すエラー。
	err error
	// gate がnilでなければ、閉じられるまで応答を待つ。
	gate chan struct{}
	// mu はreceivedを保護する。
	mu       sync.Mutex
	received []string
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.received = append(f.received, refreshToken)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.token, f.err
}

// recordingObserver はObserverへの通知を記録する。
type recordingObserver struct {
	mu        sync.Mutex
	refreshed []string
	failed    []string
}

func (o *recordingObserver) OnRefreshed(_ context.Context, refreshToken, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshed = append(o.refreshed, refreshToken)
}

func (o *recordingObserver) OnRefreshFailed(_ context.Context, refreshToken string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, refreshToken)
}
