package session

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/users"
)

const (
	// CookieName はブラウザ側セッションクッキーの名前です。
	CookieName = "sap_session"
	// LoginPath は未認証時のリダイレクト先です。
	LoginPath = "/login"

	cookieKeyRef   = "sid"
	contextUserKey = "session.user"
)

// RefFrom はクッキーセッションに保存されたセッション参照を返します。
func RefFrom(s sessions.Session) string {
	ref, _ := s.Get(cookieKeyRef).(string)
	return ref
}

// Bind はセッション参照をクッキーセッションに保存します（Save は呼び出し側）。
func Bind(s sessions.Session, ref string) {
	s.Set(cookieKeyRef, ref)
}

// Unbind はクッキーセッションからセッション参照を取り除きます。
func Unbind(s sessions.Session) {
	s.Delete(cookieKeyRef)
}

// CurrentUser は RequireLogin が解決したユーザーを返します。
func CurrentUser(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*users.User)
	return user, ok && user != nil
}

// RequireLogin はセッションを検証し、未認証ならログイン画面へリダイレクトするミドルウェアです。
func (m *Manager) RequireLogin(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		ref := RefFrom(s)

		user, err := m.Resolve(c.Request.Context(), ref)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if ref != "" {
					Unbind(s)
					_ = s.Save()
				}
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
				return
			}
			logger.Error(c.Request.Context(), "failed to resolve session", "error", err)
			c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			c.Abort()
			return
		}

		// ログアウト後に戻るボタンで保護ページが表示されないようにする
		c.Header("Cache-Control", "no-store")
		c.Set(contextUserKey, user)
		c.Next()
	}
}
