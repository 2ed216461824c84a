package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/session"
)

const (
	homePath = "/home"

	viewLogin    = "login.html"
	viewRegister = "register.html"
)

// Handler は /login, /register, /logout のハンドラーをまとめたものです。
type Handler struct {
	svc    *Service
	logger logging.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(svc *Service, logger logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Index は GET / のハンドラーです。
func (h *Handler) Index(c *gin.Context) {
	c.Redirect(http.StatusFound, session.LoginPath)
}

// LoginPage は GET /login のハンドラーです。
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, viewLogin, gin.H{"Email": ""})
}

// RegisterPage は GET /register のハンドラーです。
func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, viewRegister, gin.H{"Name": "", "Email": ""})
}

// Login は POST /login のハンドラーです。VerifyCSRF の後段で使います。
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	ref, err := h.svc.Login(c.Request.Context(), email, password)
	if err != nil {
		h.respondWithError(c, viewLogin, err, gin.H{"Email": email})
		return
	}

	s := sessions.Default(c)
	// 以前の参照は使い回さず破棄する
	if err := h.svc.Logout(c.Request.Context(), session.RefFrom(s)); err != nil {
		h.logger.Warn(c.Request.Context(), "failed to revoke previous session", "error", err)
	}
	session.Bind(s, ref)
	if _, err := RotateToken(s); err != nil {
		h.abandonLogin(c, ref, err)
		return
	}
	if err := s.Save(); err != nil {
		h.abandonLogin(c, ref, err)
		return
	}

	c.Redirect(http.StatusSeeOther, homePath)
}

// abandonLogin はクッキーに載せられなかったセッションを破棄してから 500 を返します。
func (h *Handler) abandonLogin(c *gin.Context, ref string, err error) {
	if revokeErr := h.svc.Logout(c.Request.Context(), ref); revokeErr != nil {
		h.logger.Warn(c.Request.Context(), "failed to revoke abandoned session", "error", revokeErr)
	}
	h.internalError(c, err)
}

// Register は POST /register のハンドラーです。VerifyCSRF の後段で使います。
func (h *Handler) Register(c *gin.Context) {
	name := c.PostForm("name")
	email := c.PostForm("email")
	password := c.PostForm("password")

	if _, err := h.svc.Register(c.Request.Context(), name, email, password); err != nil {
		h.respondWithError(c, viewRegister, err, gin.H{"Name": name, "Email": email})
		return
	}

	s := sessions.Default(c)
	s.AddFlash(msgRegistered)
	if err := s.Save(); err != nil {
		h.internalError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, session.LoginPath)
}

// Logout は GET/POST /logout のハンドラーです。RequireLogin の後段で使います。
func (h *Handler) Logout(c *gin.Context) {
	if _, ok := session.CurrentUser(c); !ok {
		h.respondWithError(c, viewLogin, ErrUnauthenticated, nil)
		return
	}

	s := sessions.Default(c)
	if err := h.svc.Logout(c.Request.Context(), session.RefFrom(s)); err != nil {
		h.internalError(c, err)
		return
	}

	// CSRF トークンも含めて破棄し、次のフォーム表示で再発行する
	s.Clear()
	if err := s.Save(); err != nil {
		h.internalError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, session.LoginPath)
}

func (h *Handler) render(c *gin.Context, status int, view string, data gin.H) {
	s := sessions.Default(c)
	token, err := TokenFor(s)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if flashes := s.Flashes(); len(flashes) > 0 {
		data["Flashes"] = flashes
	}
	if err := s.Save(); err != nil {
		h.internalError(c, err)
		return
	}

	data["CSRFToken"] = token
	c.Header(CSRFHeader, token)
	c.HTML(status, view, data)
}

func (h *Handler) respondWithError(c *gin.Context, view string, err error, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		data["Error"] = Message(err)
		h.render(c, http.StatusBadRequest, view, data)
	case errors.Is(err, ErrEmailTaken):
		data["Error"] = Message(err)
		h.render(c, http.StatusConflict, view, data)
	case errors.Is(err, ErrInvalidCredentials):
		data["Error"] = Message(err)
		h.render(c, http.StatusUnauthorized, view, data)
	case errors.Is(err, ErrUnauthenticated):
		c.Redirect(http.StatusFound, session.LoginPath)
	default:
		h.internalError(c, err)
	}
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.Error(c.Request.Context(), "request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
