package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/session"
)

const (
	sessionKeyCSRF = "csrf_token"

	// CSRFFormField はフォームで送るトークンのフィールド名です。
	CSRFFormField = "csrf_token"
	// CSRFHeader はヘッダーで送る場合の名前です。フォーム描画時にも返します。
	CSRFHeader = "X-CSRF-Token"
)

// TokenFor はクッキーセッションに紐づく CSRF トークンを返します。
// 未発行なら生成してセットします（Save は呼び出し側）。
func TokenFor(s sessions.Session) (string, error) {
	if token, ok := s.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}
	return RotateToken(s)
}

// RotateToken は新しい CSRF トークンを発行してセットします。ログイン成功時に使います。
func RotateToken(s sessions.Session) (string, error) {
	token, err := session.GenerateToken()
	if err != nil {
		return "", err
	}
	s.Set(sessionKeyCSRF, token)
	return token, nil
}

// Verify は送信されたトークンがセッションに紐づくものと一致するかを検証します。
func Verify(s sessions.Session, submitted string) error {
	expected, _ := s.Get(sessionKeyCSRF).(string)
	if expected == "" || submitted == "" {
		return ErrCSRFRejected
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) != 1 {
		return ErrCSRFRejected
	}
	return nil
}

// VerifyCSRF は状態を変更するリクエストのトークンを検証するミドルウェアです。
// 失敗理由はクライアントに返しません。
func VerifyCSRF(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		submitted := c.PostForm(CSRFFormField)
		if submitted == "" {
			submitted = c.GetHeader(CSRFHeader)
		}

		if err := Verify(sessions.Default(c), submitted); err != nil {
			logger.Warn(c.Request.Context(), "csrf token rejected",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"ip", c.ClientIP(),
			)
			c.String(http.StatusForbidden, http.StatusText(http.StatusForbidden))
			c.Abort()
			return
		}

		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
