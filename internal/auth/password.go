package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword はパスワードを bcrypt でハッシュ化します。
// コスト係数はライブラリの既定値（現行 10）に任せます。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードと保存済みハッシュを比較します。
// bcrypt の比較は定数時間で行われ、平文はこの呼び出しの外では保持されません。
func VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
