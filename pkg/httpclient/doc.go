// Package httpclient はバックエンドAPIとのHTTP通信を行うクライアントを提供する。
//
// Gatewayがトークン再発行エンドポイントを呼び出す際のJSON通信と、
// 任意のリクエストをそのまま転送する際の送信処理を共通化する。
// リクエストIDはコンテキスト経由でX-Request-IDヘッダーとして伝播する。
package httpclient
