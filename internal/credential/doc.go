// Package credential はブラウザセッションに紐づくアクセストークンと
// リフレッシュトークンの管理を提供する。
//
// アクセストークンの有効期限をJWTのexpクレームから判定し、期限切れ間近であれば
// リフレッシュトークンを使ってバックエンドから新しいアクセストークンを取得する。
// 再発行に失敗した場合はセッションを破棄する。
//
// トークンの署名検証は行わない。認可はバックエンドが転送された各リクエストで
// 行うため、ここでのデコードは再発行の要否を判断するためだけに使う。
package credential
