package gateway

import (
	"context"
	"log"
	"time"

	"github.com/nao1215/carbongate/internal/credential"
	gatewaydb "github.com/nao1215/carbongate/internal/gateway/db"
	"github.com/nao1215/carbongate/pkg/event"
	"github.com/nao1215/carbongate/pkg/httpclient"
)

// auditTimeout は監査ログ1件の書き込みに許す時間。
const auditTimeout = 3 * time.Second

// auditLog はセッションのライフサイクルをSQLiteに記録する。
// credential.Observerを実装する。書き込みに失敗してもリクエストの処理には影響させない。
type auditLog struct {
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *gatewaydb.Queries
}

// newAuditLog は新しいauditLogを生成する。
func newAuditLog(queries *gatewaydb.Queries) *auditLog {
	return &auditLog{queries: queries}
}

// OnRefreshed はアクセストークンの再発行を記録する。
func (a *auditLog) OnRefreshed(ctx context.Context, refreshToken, accessToken string) {
	data := event.SessionRefreshedData{}
	if exp, ok := credential.ExpiresAt(accessToken); ok {
		exp = exp.UTC()
		data.AccessTokenExpiresAt = &exp
	}
	a.record(ctx, refreshToken, event.TypeSessionRefreshed, data)
}

// OnRefreshFailed は再発行の失敗を記録する。
// セッションを破棄するかどうかは呼び出し経路で決まるため、ここでは区別しない。
func (a *auditLog) OnRefreshFailed(ctx context.Context, refreshToken string, err error) {
	a.record(ctx, refreshToken, event.TypeSessionRefreshFailed, event.SessionRefreshFailedData{Reason: err.Error()})
}

// OnLoggedOut はログアウトによるセッション破棄を記録する。
func (a *auditLog) OnLoggedOut(ctx context.Context, refreshToken string) {
	a.record(ctx, refreshToken, event.TypeSessionLoggedOut, struct{}{})
}

// record はイベントを1件書き込む。
func (a *auditLog) record(ctx context.Context, refreshToken string, eventType event.Type, data any) {
	ev, err := event.New(credential.Fingerprint(refreshToken), eventType, data)
	if err != nil {
		log.Printf("[Audit] イベント生成エラー: type=%s, error=%v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := a.queries.CreateSessionEvent(ctx, gatewaydb.CreateSessionEventParams{
		ID:         ev.ID,
		SessionKey: ev.SessionKey,
		EventType:  string(ev.EventType),
		Data:       string(ev.Data),
		RequestID:  httpclient.RequestIDFrom(ctx),
		CreatedAt:  ev.CreatedAt.Format(time.RFC3339Nano),
	}); err != nil {
		log.Printf("[Audit] 監査ログの書き込みに失敗: type=%s, session=%s, error=%v", eventType, ev.SessionKey[:8], err)
	}
}
