package gateway

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	_ "modernc.org/sqlite"

	"github.com/nao1215/carbongate/internal/config"
	gatewaydb "github.com/nao1215/carbongate/internal/gateway/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSigningKey はテスト用トークンの署名鍵。Gatewayは署名を検証しない。
var testSigningKey = []byte("test-secret-key")

// newTestToken は現在時刻からttl後に期限切れになるトークンを生成する。
func newTestToken(t *testing.T, ttl time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	signed, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("トークン生成に失敗: %v", err)
	}
	return signed
}

// backendCall はテスト用バックエンドが受け取ったリクエスト。
type backendCall struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	CacheControl  string
	Cookie        string
	Body          string
}

// testBackend はリフレッシュとリソースのエンドポイントを持つテスト用バックエンド。
type testBackend struct {
	server       *httptest.Server
	refreshCalls atomic.Int32

	mu    sync.Mutex
	calls []backendCall
}

// newTestBackend はテスト用バックエンドを起動する。
// refreshがnilの場合、/api/authrefreshは常に401を返す。
// resourceがnilの場合、その他のパスは{"ok":true}を返す。
func newTestBackend(t *testing.T, refresh, resource http.HandlerFunc) *testBackend {
	t.Helper()

	b := &testBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/authrefresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if refresh == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		refresh(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.calls = append(b.calls, backendCall{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			CacheControl:  r.Header.Get("Cache-Control"),
			Cookie:        r.Header.Get("Cookie"),
			Body:          string(body),
		})
		b.mu.Unlock()

		if resource == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		resource(w, r)
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// URL はバックエンドのベースURLを返す。
func (b *testBackend) URL() string {
	return b.server.URL
}

// Calls はリソースエンドポイントが受け取ったリクエストを返す。
func (b *testBackend) Calls() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

// refreshWith は指定したアクセストークンを返すリフレッシュハンドラ。
func refreshWith(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": token})
	}
}

// newTestConfig はテスト用の設定を返す。
func newTestConfig(backendURL string) *config.Config {
	cfg := &config.Config{
		Port:           "0",
		BackendURL:     backendURL,
		FrontendURL:    "http://localhost:3000",
		ForwardTimeout: 2 * time.Second,
	}
	cfg.Credential.RefreshThreshold = 60 * time.Second
	cfg.Credential.RefreshTimeout = 2 * time.Second
	cfg.Cookie.Secure = true
	return cfg
}

// newTestDB はスキーマ適用済みのインメモリSQLiteを返す。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	// インメモリDBは接続ごとに別のDBになるため1接続に固定する
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}
	return sqlDB
}

// newTestServer はテスト用バックエンドに転送するGatewayサーバーを生成する。
func newTestServer(t *testing.T, backendURL string) (*Server, *gatewaydb.Queries) {
	t.Helper()

	sqlDB := newTestDB(t)
	return newServer(newTestConfig(backendURL), sqlDB), gatewaydb.New(sqlDB)
}

// findCookie はレスポンスのSet-Cookieから指定した名前のCookieを探す。
func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// decodeBody はJSONレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return body
}
