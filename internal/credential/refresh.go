package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/carbongate/pkg/httpclient"
)

// RefreshPath はバックエンドのアクセストークン再発行エンドポイント。
const RefreshPath = "/api/authrefresh"

// errMissingAccessToken は再発行レスポンスにaccessTokenが含まれていないことを表す。
var errMissingAccessToken = errors.New("レスポンスにaccessTokenが含まれていません")

// Refresher はリフレッシュトークンを使って新しいアクセストークンを取得する。
type Refresher interface {
	// Refresh は新しいアクセストークンを返す。取得できなかった場合はエラーを返す。
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// refreshRequest は再発行エンドポイントへのリクエストボディ。
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse は再発行エンドポイントのレスポンスボディ。
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// HTTPRefresher はバックエンドのHTTP APIでアクセストークンを再発行するRefresher実装。
type HTTPRefresher struct {
	// client はバックエンドAPIクライアント。タイムアウトはクライアント側で設定する。
	client *httpclient.Client
}

// NewHTTPRefresher は新しいHTTPRefresherを生成する。
func NewHTTPRefresher(client *httpclient.Client) *HTTPRefresher {
	return &HTTPRefresher{client: client}
}

// Refresh はPOST /api/authrefresh を呼び出して新しいアクセストークンを取得する。
// 2xx以外のステータス、JSONでないボディ、accessTokenの欠落、通信エラー、
// タイムアウトはいずれもエラーとして返す。
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp refreshResponse
	err := r.client.PostJSON(ctx, RefreshPath, refreshRequest{RefreshToken: refreshToken}, &resp,
		httpclient.WithHeader("Cache-Control", "no-store"))
	if err != nil {
		return "", fmt.Errorf("アクセストークンの再発行に失敗: %w", err)
	}
	if resp.AccessToken == "" {
		return "", errMissingAccessToken
	}
	return resp.AccessToken, nil
}
