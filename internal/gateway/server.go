package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/carbongate/internal/config"
	"github.com/nao1215/carbongate/internal/credential"
	gatewaydb "github.com/nao1215/carbongate/internal/gateway/db"
	"github.com/nao1215/carbongate/pkg/httpclient"
	"github.com/nao1215/carbongate/pkg/middleware"
)

// maxRequestBodySize は転送するリクエストボディの上限（バイト）。
const maxRequestBodySize = 10 << 20

// loginPath は再ログインが必要な場合にフロントエンドを誘導するパス。
const loginPath = "/auth"

// hopByHopHeaders はプロキシで転送してはならないヘッダー。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// Server はGatewayのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// proxy はバックエンドへの転送を行う。
	proxy *Proxy
	// cookieOpts はセッションCookieの属性。
	cookieOpts CookieOptions
	// db は監査ログのSQLiteデータベース接続。監査ログ無効時はnil。
	db *sql.DB
	// audit はセッションのライフサイクルを記録する。監査ログ無効時はnil。
	audit *auditLog
}

// NewServer は設定から新しいGatewayサーバーを生成する。
func NewServer(cfg *config.Config) (*Server, error) {
	var sqlDB *sql.DB
	if cfg.Audit.Enabled {
		db, err := sql.Open("sqlite", auditDSN(cfg.Audit.DBPath))
		if err != nil {
			return nil, fmt.Errorf("データベース接続に失敗: %w", err)
		}
		if err := initSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
		}
		sqlDB = db
	}

	return newServer(cfg, sqlDB), nil
}

// auditDSN は監査ログ用SQLiteの接続文字列を返す。
func auditDSN(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// newServer は依存を組み立ててサーバーを生成する。
// sqlDBがnilの場合は監査ログを記録しない。
func newServer(cfg *config.Config, sqlDB *sql.DB) *Server {
	backendURL := strings.TrimRight(cfg.BackendURL, "/")

	s := &Server{
		port: cfg.Port,
		db:   sqlDB,
		cookieOpts: CookieOptions{
			Secure: cfg.Cookie.Secure,
			Domain: cfg.Cookie.Domain,
		},
	}

	storeOpts := []credential.Option{credential.WithThreshold(cfg.Credential.RefreshThreshold)}
	if sqlDB != nil {
		s.audit = newAuditLog(gatewaydb.New(sqlDB))
		storeOpts = append(storeOpts, credential.WithObserver(s.audit))
	}

	refreshClient := httpclient.New(backendURL, httpclient.WithTimeout(cfg.Credential.RefreshTimeout))
	store := credential.NewStore(credential.NewHTTPRefresher(refreshClient), storeOpts...)
	forwardClient := httpclient.New(backendURL, httpclient.WithTimeout(cfg.ForwardTimeout))
	s.proxy = NewProxy(store, forwardClient)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))
	s.router = router
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はサーバーが保持するリソースを解放する。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// セッション確立前のエンドポイント（トークン不要、バックエンドのSet-Cookieをそのまま返す）
	s.router.POST("/api/login", s.handlePass("/api/login"))
	s.router.POST("/api/register", s.handlePass("/api/register"))
	s.router.POST("/api/resend-otp", s.handlePass("/api/resend-otp"))
	s.router.POST("/verify", s.handlePass("/verify"))
	s.router.GET("/verify/info", s.handlePass("/verify/info"))

	s.router.POST("/api/logout", s.handleLogout())

	// 認証必須のエンドポイント（任意のパスをバックエンドに転送）
	secure := s.router.Group("/api/secure")
	{
		secure.GET("/*path", s.handleSecure())
		secure.POST("/*path", s.handleSecure())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway", "audit": s.audit != nil})
	})
}

// handleSecure はセッションのアクセストークンを付けてバックエンドに転送するハンドラを返す。
func (s *Server) handleSecure() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.readRequest(c, c.Param("path"))
		if !ok {
			return
		}

		sess := newCookieSession(c, s.cookieOpts)
		resp, err := s.proxy.Forward(s.requestContext(c), sess, r)
		if err != nil {
			s.writeError(c, err)
			return
		}
		relay(c, resp)
	}
}

// handlePass はトークンを付けずにバックエンドの同じパスへ転送するハンドラを返す。
func (s *Server) handlePass(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.readRequest(c, path)
		if !ok {
			return
		}

		resp, err := s.proxy.Pass(s.requestContext(c), r, c.GetHeader("Cookie"))
		if err != nil {
			s.writeError(c, err)
			return
		}
		relay(c, resp)
	}
}

// handleLogout はセッションCookieを削除するハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := newCookieSession(c, s.cookieOpts)
		if refresh := sess.RefreshToken(); refresh != "" && s.audit != nil {
			s.audit.OnLoggedOut(s.requestContext(c), refresh)
		}
		sess.Clear()
		c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
	}
}

// readRequest はGinコンテキストから転送用のRequestを組み立てる。
// ボディの読み取りに失敗した場合はエラーレスポンスを書き込んでfalseを返す。
func (s *Server) readRequest(c *gin.Context, path string) (Request, bool) {
	if c.Request.URL.RawQuery != "" {
		path += "?" + c.Request.URL.RawQuery
	}

	r := Request{
		Path:           path,
		Method:         c.Request.Method,
		ContentType:    c.GetHeader("Content-Type"),
		AcceptEncoding: c.GetHeader("Accept-Encoding"),
	}
	if r.Method == http.MethodGet {
		return r, true
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "リクエストボディが大きすぎます"})
			return Request{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディの読み取りに失敗しました"})
		return Request{}, false
	}
	r.Body = body
	return r, true
}

// requestContext はリクエストIDを伝播するコンテキストを返す。
func (s *Server) requestContext(c *gin.Context) context.Context {
	return httpclient.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
}

// writeError は転送の失敗をレスポンスに変換する。
// 未認証とセッション切れはどちらも401だが、codeで区別できるようにする。
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, credential.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "ログインが必要です",
			"code":       "not_authenticated",
			"redirectTo": loginPath,
		})
	case errors.Is(err, credential.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "セッションの有効期限が切れました。再度ログインしてください",
			"code":       "session_expired",
			"redirectTo": loginPath,
		})
	case isTimeout(err):
		log.Printf("[Gateway] 転送タイムアウト: path=%s, request_id=%s, error=%v", c.Request.URL.Path, middleware.GetRequestID(c), err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "バックエンドが時間内に応答しませんでした"})
	default:
		log.Printf("[Gateway] 転送エラー: path=%s, request_id=%s, error=%v", c.Request.URL.Path, middleware.GetRequestID(c), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "バックエンドとの通信に失敗しました"})
	}
}

// relay はバックエンドのレスポンスのステータス、ヘッダー、ボディをそのまま書き込む。
// ホップバイホップヘッダーと、Gatewayが管理するCORSヘッダーは転送しない。
func relay(c *gin.Context, resp *http.Response) {
	defer resp.Body.Close()

	header := c.Writer.Header()
	for key, values := range resp.Header {
		if _, hop := hopByHopHeaders[key]; hop {
			continue
		}
		if strings.HasPrefix(key, "Access-Control-") {
			continue
		}
		if key == "Set-Cookie" {
			for _, v := range values {
				header.Add(key, v)
			}
			continue
		}
		header[key] = values
	}

	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Printf("[Gateway] レスポンスの転送に失敗: path=%s, request_id=%s, error=%v", c.Request.URL.Path, middleware.GetRequestID(c), err)
	}
}
