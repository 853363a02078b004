// Package middleware はGatewayのGinルーターで使用する共通ミドルウェアを提供する。
//
// リクエストIDの付与、パニックリカバリ、CORS設定を含む。
package middleware
