package credential

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotAuthenticated はリフレッシュトークンが存在せず、ログインが必要であることを表す。
	ErrNotAuthenticated = errors.New("認証されていません")
	// ErrSessionExpired はアクセストークンの再発行に失敗し、セッションが破棄されたことを表す。
	ErrSessionExpired = errors.New("セッションの有効期限が切れました")
)

// Observer はセッションのライフサイクルの変化を受け取る。
// 再発行のネットワーク呼び出し1回につき1度だけ呼ばれる。
type Observer interface {
	// OnRefreshed はアクセストークンの再発行に成功したときに呼ばれる。
	OnRefreshed(ctx context.Context, refreshToken, accessToken string)
	// OnRefreshFailed はアクセストークンの再発行に失敗したときに呼ばれる。
	// Refreshからの失敗はセッションを破棄しないため、破棄の通知としては扱わない。
	OnRefreshFailed(ctx context.Context, refreshToken string, err error)
}

// Store はアクセストークンの有効性を判定し、必要に応じて再発行する。
type Store struct {
	// refresher はアクセストークンの再発行を行う。
	refresher Refresher
	// threshold は期限切れ間近と判定する残り時間。
	threshold time.Duration
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
	// observer はライフサイクルの通知先。nilの場合は通知しない。
	observer Observer
	// group は同一リフレッシュトークンによる同時再発行を1回にまとめる。
	group singleflight.Group
}

// Option はStore生成時の設定を変更する関数。
type Option func(*Store)

// WithThreshold は期限切れ間近と判定する残り時間を設定する。
func WithThreshold(d time.Duration) Option {
	return func(s *Store) {
		s.threshold = d
	}
}

// WithClock は現在時刻の取得関数を設定する。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithObserver はライフサイクルの通知先を設定する。
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// NewStore は新しいStoreを生成する。
func NewStore(refresher Refresher, opts ...Option) *Store {
	s := &Store{
		refresher: refresher,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsExpiring はトークンが空、デコード不能、または残り有効期間が閾値未満であればtrueを返す。
func (s *Store) IsExpiring(token string) bool {
	return IsExpiring(token, s.threshold, s.now())
}

// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
// 失敗した場合は空文字列とfalseを返し、失敗を致命的とみなすかは呼び出し側が決める。
func (s *Store) Refresh(ctx context.Context, refreshToken string) (string, bool) {
	token, err := s.refresh(ctx, refreshToken)
	if err != nil {
		return "", false
	}
	return token, true
}

// EnsureValid はセッションの有効なアクセストークンを返す。
//
// 現在のアクセストークンが期限切れ間近でなければそのまま返す。そうでなければ
// リフレッシュトークンで再発行し、成功すればセッションに保存して返す。
// リフレッシュトークンが無い場合は通信を行わずにErrNotAuthenticatedを返す。
// 再発行に失敗した場合は両方のトークンを破棄してErrSessionExpiredを返す。
func (s *Store) EnsureValid(ctx context.Context, sess Session) (string, error) {
	access := sess.AccessToken()
	if access != "" && !s.IsExpiring(access) {
		return access, nil
	}

	refresh := sess.RefreshToken()
	if refresh == "" {
		return "", ErrNotAuthenticated
	}

	token, err := s.refresh(ctx, refresh)
	if err != nil {
		sess.Clear()
		log.Printf("[Credential] 再発行に失敗したためセッションを破棄しました: session=%s, error=%v", shortFingerprint(refresh), err)
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	sess.SetAccessToken(token)
	return token, nil
}

// refresh は同一リフレッシュトークンの再発行をまとめて実行する。
// 最初の呼び出しだけがバックエンドと通信し、同時に到着した呼び出しはその結果を共有する。
func (s *Store) refresh(ctx context.Context, refreshToken string) (string, error) {
	// 先行した呼び出し元のキャンセルが後続に波及しないよう、キャンセルを切り離す。
	// 通信時間の上限はRefresher側のタイムアウトで制御する。
	flightCtx := context.WithoutCancel(ctx)

	v, err, _ := s.group.Do(Fingerprint(refreshToken), func() (any, error) {
		token, err := s.refresher.Refresh(flightCtx, refreshToken)
		if err == nil && token == "" {
			err = errMissingAccessToken
		}
		if s.observer != nil {
			if err != nil {
				s.observer.OnRefreshFailed(flightCtx, refreshToken, err)
			} else {
				s.observer.OnRefreshed(flightCtx, refreshToken, token)
			}
		}
		return token, err
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
