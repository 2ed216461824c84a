package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher は bcrypt でパスワードをハッシュ化・検証します。
type Hasher struct {
	cost int
}

// NewHasher は指定コストの Hasher を作成します。範囲外のコストは bcrypt の既定値になります。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash はソルト付きのダイジェストを返します。72バイトを超える入力は bcrypt.ErrPasswordTooLong です。
func (h *Hasher) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Verify は平文がダイジェストと一致するかを返します。
// 壊れたダイジェストは常に不一致として扱います。
func (h *Hasher) Verify(plaintext string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plaintext)) == nil
}
