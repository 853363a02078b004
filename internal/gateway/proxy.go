package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/nao1215/carbongate/internal/credential"
	"github.com/nao1215/carbongate/pkg/httpclient"
)

// defaultContentType はContent-Type未指定時に転送で使う値。
const defaultContentType = "application/json"

// ErrUpstreamUnavailable はバックエンドへの転送自体が失敗したことを表す。
// バックエンドが応答した場合はステータスにかかわらずこのエラーにはならない。
var ErrUpstreamUnavailable = errors.New("バックエンドとの通信に失敗しました")

// Request はGatewayが転送するリクエスト。
type Request struct {
	// Path はバックエンドのベースURLに続くパス。クエリ文字列を含めてよい。
	Path string
	// Method はHTTPメソッド。
	Method string
	// Body はリクエストボディ。GETとHEADでは送信しない。
	Body []byte
	// ContentType はリクエストのContent-Type。空の場合はapplication/json。
	ContentType string
	// AcceptEncoding はブラウザのAccept-Encoding。
	// 設定するとレスポンスは圧縮されたまま返り、Content-Encodingもそのまま残る。
	AcceptEncoding string
}

// Proxy は認証付きリクエストをバックエンドに転送する。
type Proxy struct {
	// store はアクセストークンの有効性確認と再発行を行う。
	store *credential.Store
	// client はバックエンドへの転送に使うHTTPクライアント。
	client *httpclient.Client
}

// NewProxy は新しいProxyを生成する。
func NewProxy(store *credential.Store, client *httpclient.Client) *Proxy {
	return &Proxy{
		store:  store,
		client: client,
	}
}

// Forward はセッションのアクセストークンを付けてリクエストをバックエンドに転送する。
//
// 転送前に必ずcredential.Store.EnsureValidを呼び、失敗した場合は通信せずに
// credential.ErrNotAuthenticatedまたはcredential.ErrSessionExpiredを返す。
// バックエンドが応答した場合はステータスにかかわらずレスポンスを返す。
// レスポンスボディのCloseは呼び出し側の責務。再送は行わない。
func (p *Proxy) Forward(ctx context.Context, sess credential.Session, r Request) (*http.Response, error) {
	token, err := p.store.EnsureValid(ctx, sess)
	if err != nil {
		return nil, err
	}

	req, err := p.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return p.send(req)
}

// Pass はトークンを付けずにリクエストをバックエンドに転送する。
// ログインや会員登録など、セッション確立前のエンドポイントに使う。
// cookieHeaderにはブラウザから受け取ったCookieヘッダーをそのまま渡す。
func (p *Proxy) Pass(ctx context.Context, r Request, cookieHeader string) (*http.Response, error) {
	req, err := p.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	return p.send(req)
}

// newRequest は転送用のHTTPリクエストを組み立てる。
func (p *Proxy) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead && len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, p.client.BaseURL()+r.Path, body)
	if err != nil {
		return nil, fmt.Errorf("転送リクエストの作成に失敗: %w", err)
	}

	contentType := r.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "no-store")
	if r.AcceptEncoding != "" {
		req.Header.Set("Accept-Encoding", r.AcceptEncoding)
	}
	return req, nil
}

// send はリクエストを送信する。通信エラーはErrUpstreamUnavailableでラップする。
func (p *Proxy) send(req *http.Request) (*http.Response, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

// isTimeout はエラーがタイムアウトによるものかを判定する。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
