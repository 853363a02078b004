package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// cookieAccessToken はアクセストークンを保存するCookie名。
	cookieAccessToken = "accessToken"
	// cookieRefreshToken はリフレッシュトークンを保存するCookie名。
	cookieRefreshToken = "refreshToken"
)

// CookieOptions はセッションCookieの属性。
type CookieOptions struct {
	// Secure はSecure属性を付けるかどうか。
	Secure bool
	// Domain はDomain属性。空の場合はホストのみ。
	Domain string
}

// cookieSession はリクエストのCookieをトークンの保存先とするcredential.Session実装。
// 1リクエストの中でのみ使用する。書き込みはレスポンスのSet-Cookieとして反映され、
// 同じリクエスト内の以降の読み出しは書き込み後の値を返す。
type cookieSession struct {
	c       *gin.Context
	opts    CookieOptions
	access  string
	refresh string
}

// newCookieSession はリクエストのCookieからセッションを生成する。
func newCookieSession(c *gin.Context, opts CookieOptions) *cookieSession {
	return &cookieSession{
		c:       c,
		opts:    opts,
		access:  rawCookie(c.Request, cookieAccessToken),
		refresh: rawCookie(c.Request, cookieRefreshToken),
	}
}

// rawCookie はCookieの値をデコードせずに返す。
// トークンはバックエンドが発行した不透明な値なので、gin.Context.Cookieのような
// URLデコードを行うと "+" や "%" を含む値が変わってしまう。
func rawCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *cookieSession) AccessToken() string  { return s.access }
func (s *cookieSession) RefreshToken() string { return s.refresh }

// SetAccessToken はアクセストークンを置き換え、Cookieに書き込む。
func (s *cookieSession) SetAccessToken(token string) {
	s.access = token
	s.setCookie(cookieAccessToken, token, 0)
}

// Clear は両方のトークンを破棄し、Cookieを削除する。
func (s *cookieSession) Clear() {
	s.access = ""
	s.refresh = ""
	s.setCookie(cookieAccessToken, "", -1)
	s.setCookie(cookieRefreshToken, "", -1)
}

// setCookie はHttpOnly、SameSite=Lax、Path=/ のCookieを値をエンコードせずに書き込む。
// maxAgeが負の場合はCookieを削除する。
func (s *cookieSession) setCookie(name, value string, maxAge int) {
	http.SetCookie(s.c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   maxAge,
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
