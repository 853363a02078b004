package credential

import "sync"

// Session は1つのブラウザセッションに紐づくアクセストークンとリフレッシュトークンの組。
// 保存先（Cookie、メモリ等）は実装に委ねる。
type Session interface {
	// AccessToken は現在のアクセストークンを返す。存在しない場合は空文字列。
	AccessToken() string
	// RefreshToken は現在のリフレッシュトークンを返す。存在しない場合は空文字列。
	RefreshToken() string
	// SetAccessToken はアクセストークンを置き換える。リフレッシュトークンは変更しない。
	SetAccessToken(token string)
	// Clear は両方のトークンを破棄する。
	Clear()
}

// MemorySession はメモリ上にトークンを保持するSession実装。
// 複数のゴルーチンから同時に使用できる。
type MemorySession struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemorySession は指定したトークンを持つMemorySessionを生成する。
func NewMemorySession(accessToken, refreshToken string) *MemorySession {
	return &MemorySession{
		access:  accessToken,
		refresh: refreshToken,
	}
}

// AccessToken は現在のアクセストークンを返す。
func (s *MemorySession) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken は現在のリフレッシュトークンを返す。
func (s *MemorySession) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetAccessToken はアクセストークンを置き換える。
func (s *MemorySession) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = token
}

// Clear は両方のトークンを破棄する。
func (s *MemorySession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
