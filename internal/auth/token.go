package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL はトークン自体の有効期間です。
// クッキーの MaxAge（cookieMaxAge）とは別管理で、意図的に統一していません。
// クッキーだけが生き残った場合はルートゲートの掃除ルールで回収されます。
const tokenTTL = 30 * time.Minute

// ErrInvalidToken は署名不一致・構造不正・クレーム欠落・期限切れを
// 区別せずにまとめた検証失敗です。呼び出し側には原因を開示しません。
var ErrInvalidToken = errors.New("token is invalid or expired")

// sessionClaims はセッショントークンのペイロードです。
type sessionClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// TokenCodec はセッショントークンの発行と検証を行います。
// 署名鍵以外の状態を持たず、並行呼び出しに対して安全です。
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec は TokenCodec を作成します。
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue は userID を埋め込んだ署名付きトークンを発行します。
// 戻り値の時刻はトークンの失効時刻です。
func (c *TokenCodec) Issue(userID int64) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tokenTTL)

	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse はトークンを検証し、埋め込まれた userID を返します。
// 失敗理由は内部ログ用にラップされますが、種別はすべて ErrInvalidToken に畳み込まれます。
func (c *TokenCodec) Parse(tokenStr string) (int64, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return 0, fmt.Errorf("%w: missing userId claim", ErrInvalidToken)
	}
	return claims.UserID, nil
}
