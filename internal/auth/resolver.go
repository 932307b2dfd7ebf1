package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserKey は、ハンドラー間で解決済みユーザーIDを共有するためのキーです。
const ContextUserKey = "auth.user_id"

// Resolve はリクエストのセッションクッキーから認証済みユーザーIDを導出します。
// クッキー不在・トークン不正・期限切れはすべて ok=false になります。
// リクエストごとに再計算されるため、何度呼んでも同じ結果が得られます。
func (m *Manager) Resolve(r *http.Request) (int64, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return 0, false
	}

	userID, err := m.codec.Parse(cookie.Value)
	if err != nil {
		log.Printf("session token rejected: %v", err)
		return 0, false
	}
	return userID, true
}

// RequireLogin はセッションを検証するミドルウェアを返します。
// API 呼び出しはページ遷移を経由しないため、ルートゲートとは別にここで必ず再検証します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := m.Resolve(c.Request)
		if !ok {
			// 死んだクッキーを持ち続けても再試行が失敗し続けるだけなので回収する
			if hasSessionCookie(c.Request) {
				ClearSessionCookie(c.Writer, m.secure)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です",
			})
			return
		}

		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// CurrentUserID は RequireLogin が設定したユーザーIDを取り出します。
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func hasSessionCookie(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	return err == nil && cookie.Value != ""
}
