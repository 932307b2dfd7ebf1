package auth

import "net/http"

const (
	// SessionCookieName はセッショントークンを運ぶクッキー名です。
	SessionCookieName = "token"

	// cookieMaxAge はクッキー自体の寿命（秒）です。
	// トークンの tokenTTL より長く、この差は意図的に残しています（DESIGN.md 参照）。
	cookieMaxAge = 60 * 60
)

// SetSessionCookie はセッションクッキーをレスポンスに付与します。
// HttpOnly と SameSite=Strict は常に有効で、Secure はリリースモードでのみ付きます。
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie はセッションクッキーを破棄します。
// クッキーが存在しない場合に呼んでも害はありません（冪等）。
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
