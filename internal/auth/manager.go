// Package auth は認証・セッション管理・ルート保護を提供します。
package auth

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// Credential はユーザーストアが返す認証情報です。
type Credential struct {
	ID           int64
	Username     string
	PasswordHash string
}

// UserStore はユーザー検索を提供します。
// 該当ユーザーが存在しない場合は (nil, nil) を返します。
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*Credential, error)
	FindByID(ctx context.Context, id int64) (*Credential, error)
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Manager はログイン・ログアウトとセッション発行をまとめた構造体です。
type Manager struct {
	codec  *TokenCodec
	users  UserStore
	secure bool

	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewManager は認証マネージャーを作成します。
// secure はリリースモードで true を渡し、クッキーの Secure 属性に反映されます。
func NewManager(codec *TokenCodec, users UserStore, secure bool) *Manager {
	return &Manager{
		codec:    codec,
		users:    users,
		secure:   secure,
		attempts: make(map[string]*attemptState),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login は POST /api/auth/login のハンドラーです。
// ユーザー不在とパスワード不一致は外部から区別できない同一エラーになります。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "username と password を JSON で送ってください",
		})
		return
	}

	ip := c.ClientIP()
	if retryAfter := m.checkLock(ip); retryAfter > 0 {
		// Retry-After は秒数またはHTTP-Date形式が推奨されているため秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    "TOO_MANY_ATTEMPTS",
			"message": "一定時間後に再度お試しください",
		})
		return
	}

	cred, err := m.users.FindByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "ユーザー情報の取得に失敗しました",
		})
		return
	}

	if cred == nil || !VerifyPassword(req.Password, cred.PasswordHash) {
		remaining := m.recordFailure(ip)
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":              "INVALID_CREDENTIALS",
			"message":           "ユーザー名またはパスワードが正しくありません",
			"remainingAttempts": remaining,
		})
		return
	}

	m.resetAttempts(ip)

	token, _, err := m.codec.Issue(cred.ID)
	if err != nil {
		log.Printf("failed to issue session token user=%d: %v", cred.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "セッショントークンの発行に失敗しました",
		})
		return
	}

	SetSessionCookie(c.Writer, token, m.secure)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout は POST /api/auth/logout のハンドラーです。
// セッションが無い状態で呼ばれても成功します（冪等）。
func (m *Manager) Logout(c *gin.Context) {
	ClearSessionCookie(c.Writer, m.secure)
	c.Status(http.StatusNoContent)
}

// Me は GET /api/auth/me のハンドラーです。
// RequireLogin の後段で使われる前提です。
func (m *Manager) Me(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "ログインが必要です",
		})
		return
	}

	cred, err := m.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "ユーザー情報の取得に失敗しました",
		})
		return
	}
	if cred == nil {
		// トークンは有効だがユーザーが消えている。セッションを回収する
		ClearSessionCookie(c.Writer, m.secure)
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "ユーザーが存在しません",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       cred.ID,
		"username": cred.Username,
	})
}

func (m *Manager) checkLock(ip string) time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()

	state, ok := m.attempts[ip]
	if !ok {
		return 0
	}
	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return time.Until(state.lockedUntil)
}

func (m *Manager) recordFailure(ip string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	state, ok := m.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		m.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (m *Manager) resetAttempts(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.attempts, ip)
}
