package auth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	gsessions "github.com/gorilla/sessions"

	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/session"
	"github.com/yourusername/sap/internal/web"
)

// browser はレスポンスのクッキーを次のリクエストへ引き継ぐ簡易クライアントです。
type browser struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, router http.Handler) *browser {
	return &browser{t: t, router: router, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// csrfToken はフォームを表示してトークンを取得します。
func (b *browser) csrfToken(path string) string {
	b.t.Helper()
	rec := b.get(path)
	token := rec.Header().Get(CSRFHeader)
	if rec.Code != http.StatusOK || token == "" {
		b.t.Fatalf("GET %s: status=%d token=%q", path, rec.Code, token)
	}
	return token
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryUsers, *fakeSessions) {
	t.Helper()
	return newTestRouterWithStore(t, cookie.NewStore([]byte("test-secret-test-secret-test-sec")))
}

func newTestRouterWithStore(t *testing.T, cookieStore sessions.Store) (*gin.Engine, *memoryUsers, *fakeSessions) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, store, sessionsFake := newTestService(t)
	logger := logging.NewWithWriter(io.Discard, "error")
	h := NewHandler(svc, logger)

	router := gin.New()
	router.SetHTMLTemplate(web.Templates())
	router.Use(sessions.Sessions(session.CookieName, cookieStore))

	forms := router.Group("", VerifyCSRF(logger))
	forms.GET("/", h.Index)
	forms.GET("/login", h.LoginPage)
	forms.POST("/login", h.Login)
	forms.GET("/register", h.RegisterPage)
	forms.POST("/register", h.Register)
	forms.POST("/logout", h.Logout)

	return router, store, sessionsFake
}

func TestIndexRedirectsToLogin(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := newBrowser(t, router).get("/")

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLoginPageEmbedsStableToken(t *testing.T) {
	router, _, _ := newTestRouter(t)
	b := newBrowser(t, router)

	rec := b.get("/login")
	token := rec.Header().Get(CSRFHeader)
	if len(token) != 64 {
		t.Fatalf("unexpected token: %q", token)
	}
	if !strings.Contains(rec.Body.String(), `value="`+token+`"`) {
		t.Fatalf("token not embedded in form:\n%s", rec.Body.String())
	}
	if again := b.csrfToken("/register"); again != token {
		t.Fatalf("token should be fixed per session: %q != %q", again, token)
	}
}

func TestLoginPageSetsSessionCookie(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := newBrowser(t, router).get("/login")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("unexpected cookies: %v", cookies)
	}
}

func TestRegisterRequiresCSRF(t *testing.T) {
	router, store, _ := newTestRouter(t)
	b := newBrowser(t, router)
	b.csrfToken("/register")

	for _, token := range []string{"", "forged"} {
		form := url.Values{"name": {"Ann"}, "email": {"ann@gmail.com"}, "password": {"Abcdef1!"}}
		if token != "" {
			form.Set(CSRFFormField, token)
		}
		rec := b.post("/register", form)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("token %q: unexpected status %d", token, rec.Code)
		}
		if rec.Body.String() != http.StatusText(http.StatusForbidden) {
			t.Fatalf("rejection should be generic, got %q", rec.Body.String())
		}
	}
	if store.count() != 0 {
		t.Fatalf("no user should be inserted, got %d", store.count())
	}
}

func TestCSRFTokenFromOtherSessionIsRejected(t *testing.T) {
	router, store, _ := newTestRouter(t)
	victim := newBrowser(t, router)
	attacker := newBrowser(t, router)
	victim.csrfToken("/register")
	attackerToken := attacker.csrfToken("/register")

	rec := victim.post("/register", url.Values{
		CSRFFormField: {attackerToken},
		"name":        {"Ann"},
		"email":       {"ann@gmail.com"},
		"password":    {"Abcdef1!"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if store.count() != 0 {
		t.Fatal("no user should be inserted")
	}
}

func TestCSRFHeaderIsAccepted(t *testing.T) {
	router, store, _ := newTestRouter(t)
	b := newBrowser(t, router)
	token := b.csrfToken("/register")

	form := url.Values{"name": {"Ann"}, "email": {"ann@gmail.com"}, "password": {"Abcdef1!"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(CSRFHeader, token)
	rec := b.do(req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if store.count() != 1 {
		t.Fatalf("expected one user, got %d", store.count())
	}
}

func TestRegisterValidationMessages(t *testing.T) {
	tests := []struct {
		email    string
		password string
		status   int
		message  string
	}{
		{"ann@yahoo.com", "Abcdef1!", http.StatusBadRequest, msgInvalidEmail},
		{"ann@gmail.com", "abcdef1!", http.StatusBadRequest, msgWeakPassword},
	}

	for _, tc := range tests {
		router, store, _ := newTestRouter(t)
		b := newBrowser(t, router)
		token := b.csrfToken("/register")

		rec := b.post("/register", url.Values{
			CSRFFormField: {token},
			"name":        {"Ann"},
			"email":       {tc.email},
			"password":    {tc.password},
		})
		if rec.Code != tc.status {
			t.Fatalf("%s: unexpected status %d", tc.email, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), htmlEscape(tc.message)) {
			t.Fatalf("%s: expected message %q in:\n%s", tc.email, tc.message, rec.Body.String())
		}
		if store.count() != 0 {
			t.Fatalf("%s: no user should be inserted", tc.email)
		}
	}
}

func TestRegisterThenDuplicate(t *testing.T) {
	router, store, _ := newTestRouter(t)
	b := newBrowser(t, router)
	token := b.csrfToken("/register")
	form := url.Values{
		CSRFFormField: {token},
		"name":        {"Ann"},
		"email":       {"ann@gmail.com"},
		"password":    {"Abcdef1!"},
	}

	rec := b.post("/register", form)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	// 登録完了のフラッシュは一度だけ表示される
	page := b.get("/login")
	if !strings.Contains(page.Body.String(), msgRegistered) {
		t.Fatalf("expected flash message in:\n%s", page.Body.String())
	}
	if strings.Contains(b.get("/login").Body.String(), msgRegistered) {
		t.Fatal("flash should be consumed after first render")
	}

	rec = b.post("/register", form)
	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgEmailTaken) {
		t.Fatalf("expected duplicate message in:\n%s", rec.Body.String())
	}
	if store.count() != 1 {
		t.Fatalf("expected exactly one user, got %d", store.count())
	}
}

func TestLoginGenericFailure(t *testing.T) {
	router, _, _ := newTestRouter(t)
	b := newBrowser(t, router)
	token := b.csrfToken("/register")
	b.post("/register", url.Values{
		CSRFFormField: {token},
		"name":        {"Ann"},
		"email":       {"ann@gmail.com"},
		"password":    {"Abcdef1!"},
	})
	// 登録完了のフラッシュを先に消費しておく
	b.get("/login")

	wrong := b.post("/login", url.Values{CSRFFormField: {token}, "email": {"ann@gmail.com"}, "password": {"Wrong1!x"}})
	unknown := b.post("/login", url.Values{CSRFFormField: {token}, "email": {"ghost@gmail.com"}, "password": {"Abcdef1!"}})

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), msgInvalidCredentials) {
			t.Fatalf("expected generic message in:\n%s", rec.Body.String())
		}
	}
	if stripEmail(wrong.Body.String(), "ann@gmail.com") != stripEmail(unknown.Body.String(), "ghost@gmail.com") {
		t.Fatal("wrong password and unknown email must render identically")
	}
}

func TestLoginSuccessRotatesToken(t *testing.T) {
	router, _, sessionsFake := newTestRouter(t)
	b := newBrowser(t, router)
	token := b.csrfToken("/register")
	b.post("/register", url.Values{
		CSRFFormField: {token},
		"name":        {"Ann"},
		"email":       {"ann@gmail.com"},
		"password":    {"Abcdef1!"},
	})

	rec := b.post("/login", url.Values{CSRFFormField: {token}, "email": {"ann@gmail.com"}, "password": {"Abcdef1!"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/home" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}
	if len(sessionsFake.live) != 1 {
		t.Fatalf("expected one live session, got %d", len(sessionsFake.live))
	}

	if rotated := b.csrfToken("/login"); rotated == token {
		t.Fatal("csrf token should rotate after login")
	}

	// 古いトークンでの送信は拒否される
	rec = b.post("/login", url.Values{CSRFFormField: {token}, "email": {"ann@gmail.com"}, "password": {"Abcdef1!"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stale token should be rejected, got %d", rec.Code)
	}
}

func TestRepeatedLoginRevokesPreviousSession(t *testing.T) {
	router, _, sessionsFake := newTestRouter(t)
	b := newBrowser(t, router)
	token := b.csrfToken("/register")
	b.post("/register", url.Values{
		CSRFFormField: {token},
		"name":        {"Ann"},
		"email":       {"ann@gmail.com"},
		"password":    {"Abcdef1!"},
	})

	for i := 0; i < 2; i++ {
		token = b.csrfToken("/login")
		rec := b.post("/login", url.Values{CSRFFormField: {token}, "email": {"ann@gmail.com"}, "password": {"Abcdef1!"}})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("login %d: unexpected status %d", i, rec.Code)
		}
	}
	if len(sessionsFake.live) != 1 {
		t.Fatalf("previous session should be revoked, live=%d", len(sessionsFake.live))
	}
}

// refSaveFailingStore はセッション参照を含む保存だけを失敗させるクッキーストアです。
type refSaveFailingStore struct {
	sessions.Store
}

func (s *refSaveFailingStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

func (s *refSaveFailingStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	inner, err := s.Store.New(r, name)
	sess := gsessions.NewSession(s, name)
	if inner != nil {
		sess.Values = inner.Values
		sess.Options = inner.Options
		sess.IsNew = inner.IsNew
	}
	return sess, err
}

func (s *refSaveFailingStore) Save(r *http.Request, w http.ResponseWriter, sess *gsessions.Session) error {
	if _, ok := sess.Values["sid"]; ok {
		return errors.New("cookie too large")
	}
	return s.Store.Save(r, w, sess)
}

func TestLoginRevokesSessionWhenCookieSaveFails(t *testing.T) {
	store := &refSaveFailingStore{Store: cookie.NewStore([]byte("test-secret-test-secret-test-sec"))}
	router, _, sessionsFake := newTestRouterWithStore(t, store)
	b := newBrowser(t, router)
	token := b.csrfToken("/register")
	b.post("/register", url.Values{
		CSRFFormField: {token},
		"name":        {"Ann"},
		"email":       {"ann@gmail.com"},
		"password":    {"Abcdef1!"},
	})

	rec := b.post("/login", url.Values{CSRFFormField: {token}, "email": {"ann@gmail.com"}, "password": {"Abcdef1!"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if sessionsFake.n != 1 {
		t.Fatalf("expected one issued session, got %d", sessionsFake.n)
	}
	if len(sessionsFake.live) != 0 {
		t.Fatalf("session that never reached the cookie should be revoked, live=%d", len(sessionsFake.live))
	}
}

func TestLogoutWithoutUserRedirects(t *testing.T) {
	router, _, _ := newTestRouter(t)
	b := newBrowser(t, router)
	token := b.csrfToken("/login")

	rec := b.post("/logout", url.Values{CSRFFormField: {token}})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func htmlEscape(s string) string {
	return strings.NewReplacer("'", "&#39;", `"`, "&#34;").Replace(s)
}

func stripEmail(body, email string) string {
	return strings.ReplaceAll(body, email, "")
}
