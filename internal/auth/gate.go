package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// LoginPath は未認証ユーザーの誘導先です。
	LoginPath = "/login"

	// DefaultRedirect はログイン済みユーザーの既定の着地ページです。
	DefaultRedirect = "/"
)

// Gate はページ遷移に対する単一の認可判定点です。
// パスを Public / Protected に分類し、リダイレクトとクッキー回収を強制します。
// API・静的アセットは分類の対象外としてそのまま通します（各APIは RequireLogin で再検証）。
type Gate struct {
	manager *Manager

	// 分類対象外のプレフィックス。常に通過
	skipPrefixes []string
	// 先頭一致で判定する順序付きリスト。プレフィックスは重複しない前提
	publicPrefixes    []string
	protectedPrefixes []string
}

// NewGate はルートゲートを作成します。
func NewGate(manager *Manager) *Gate {
	return &Gate{
		manager:           manager,
		skipPrefixes:      []string{"/api/", "/assets/", "/static/", "/favicon.ico", "/health"},
		publicPrefixes:    []string{LoginPath},
		protectedPrefixes: []string{"/"},
	}
}

// Middleware はすべてのリクエストの先頭で実行される判定関数を返します。
// 保護ページのロジックやデータアクセスより前に必ず評価されます。
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if matchPrefix(g.skipPrefixes, path) {
			c.Next()
			return
		}

		tokenPresent := hasSessionCookie(c.Request)
		_, tokenValid := g.manager.Resolve(c.Request)

		if matchPrefix(g.publicPrefixes, path) {
			// ログイン済みユーザーがログインページに戻るのを防ぐ
			if tokenValid {
				c.Redirect(http.StatusFound, DefaultRedirect)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		if matchPrefix(g.protectedPrefixes, path) {
			switch {
			case tokenValid:
				c.Next()
			case tokenPresent:
				// 期限切れ・改ざんされたトークン。持ち続けるとリダイレクトループに
				// なるためクッキーごと回収してからログインへ戻す
				ClearSessionCookie(c.Writer, g.manager.secure)
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
			default:
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
			}
			return
		}

		c.Next()
	}
}

func matchPrefix(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
