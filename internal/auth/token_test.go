package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

func TestIssueParseRoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	token, expiresAt, err := codec.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token is not a three segment JWT: %q", token)
	}
	if remaining := time.Until(expiresAt); remaining < 29*time.Minute || remaining > 30*time.Minute {
		t.Fatalf("unexpected expiry: %v from now", remaining)
	}

	userID, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("Parse returned userID %d, want 42", userID)
	}
}

func TestParseExpiredToken(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	token := signToken(t, testSecret, 42, time.Now().Add(-time.Minute))

	if _, err := codec.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse(expired) = %v, want ErrInvalidToken", err)
	}
}

func TestParseTamperedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	token, _, err := codec.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := map[string]string{
		"payload":   parts[0] + "." + flipFirstByte(parts[1]) + "." + parts[2],
		"signature": parts[0] + "." + parts[1] + "." + flipFirstByte(parts[2]),
	}
	for name, tok := range tampered {
		if _, err := codec.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse(tampered %s) = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestParseMalformedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d", "!!.!!.!!"} {
		if _, err := codec.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestParseWrongSecret(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	other := NewTokenCodec("another-secret")

	token, _, err := other.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := codec.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse(foreign token) = %v, want ErrInvalidToken", err)
	}
}

func TestParseMissingUserIDClaim(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	token := signToken(t, testSecret, 0, time.Now().Add(time.Hour))

	if _, err := codec.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse(no userId) = %v, want ErrInvalidToken", err)
	}
}

// signToken は任意のクレームでトークンを作るテスト用ヘルパーです。
func signToken(t *testing.T, secret string, userID int64, expiresAt time.Time) string {
	t.Helper()

	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

// flipFirstByte は先頭1文字を別のbase64url文字に差し替えます。
// 末尾の文字は未使用ビットを含むことがあり、変えても同じバイト列に
// デコードされ得るため先頭を使います。
func flipFirstByte(segment string) string {
	if segment == "" {
		return segment
	}
	replacement := byte('A')
	if segment[0] == 'A' {
		replacement = 'B'
	}
	return string(replacement) + segment[1:]
}
