package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CookieSigner はセッションCookieの値をHMAC-SHA256で署名・検証する。
// Cookie値は「セッションID.署名」の形式になる。
// ブラウザ側で値を書き換えられた場合、ストアへの問い合わせ前に検出できる。
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner はCookieSignerを生成する。
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign はセッションIDに署名を付けたCookie値を返す。
func (s *CookieSigner) Sign(sessionID string) string {
	return sessionID + "." + s.mac(sessionID)
}

// Verify はCookie値の署名を検証し、セッションIDを取り出す。
// 署名が一致しない場合や形式が不正な場合はfalseを返す。
func (s *CookieSigner) Verify(value string) (string, bool) {
	// セッションIDにUUID以外が入り込む余地を残すため、最後のドットで分割する
	i := strings.LastIndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", false
	}
	sessionID, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(sessionID))) {
		return "", false
	}
	return sessionID, true
}

func (s *CookieSigner) mac(sessionID string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(sessionID))
	return hex.EncodeToString(h.Sum(nil))
}
