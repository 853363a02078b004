// Package gateway はブラウザとバックエンドAPIの間に立つGatewayの内部実装を提供する。
//
// 認証が必要なリクエストはすべてProxyを通る。Proxyはcredential.Storeで
// アクセストークンの有効性を確認し、必要であれば再発行してから
// Authorizationヘッダーを付けてバックエンドに転送し、レスポンスをそのまま返す。
// トークンはHttpOnly CookieとしてGatewayの内側にのみ保持し、
// ブラウザのスクリプトからは参照できない。
package gateway
