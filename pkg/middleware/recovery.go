package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニックの内容をリクエストIDと共にログに出力し、500エラーを返す。
// エラーボディにもリクエストIDを含める。
// RequestIDより後に登録すること。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			requestID := GetRequestID(c)
			log.Printf("[PANIC] %s %s: request_id=%s, %v", c.Request.Method, c.Request.URL.Path, requestID, r)

			body := gin.H{"error": "内部サーバーエラーが発生しました"}
			if requestID != "" {
				body["request_id"] = requestID
			}
			// 転送中のパニックではレスポンスが書き込み済みの場合がある
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
