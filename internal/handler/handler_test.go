package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/captcha"
	"github.com/jogjaantibully/kanal/internal/handler"
	"github.com/jogjaantibully/kanal/internal/model"
	sqliteRepo "github.com/jogjaantibully/kanal/internal/repository/sqlite"
	"github.com/jogjaantibully/kanal/internal/server"
	"github.com/jogjaantibully/kanal/internal/service"
	"github.com/jogjaantibully/kanal/internal/session"
	"github.com/jogjaantibully/kanal/web"
)

// stubProvider plays the identity provider. Exchange returns principal,
// or err when set.
type stubProvider struct {
	mu        sync.Mutex
	principal *auth.Principal
	err       error
	exchanges int
	verifier  string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) AuthCodeURL(state, challenge string) string {
	return "https://idp.example/authorize?" + url.Values{
		"state":          {state},
		"code_challenge": {challenge},
	}.Encode()
}

func (p *stubProvider) Exchange(_ context.Context, _, verifier string) (*auth.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges++
	p.verifier = verifier
	if p.err != nil {
		return nil, p.err
	}
	return p.principal, nil
}

// memBlobs stands in for the S3 bucket.
type memBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (b *memBlobs) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	return "https://cdn.example/" + key, nil
}

type testEnv struct {
	router   http.Handler
	db       *sqliteRepo.DB
	tokens   *auth.TokenService
	provider *stubProvider
	blobs    *memBlobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)
	sessions := session.NewManager(tokens, session.NewMemoryRevocations(), session.Options{}, logger)

	provider := &stubProvider{principal: &auth.Principal{
		Subject:       "u1",
		DisplayName:   "Alice",
		Email:         "a@x.com",
		EmailVerified: true,
		Provider:      "stub",
	}}
	blobs := &memBlobs{}

	pages, err := handler.NewRenderer(web.Templates(), logger)
	require.NoError(t, err)

	gate := service.NewGateService(db.Users(), captcha.PresenceVerifier{}, logger)
	quotes := service.NewQuoteService(db.Quotes(), blobs, logger)
	gelar := service.NewGelarService(db.GelarPosts(), blobs, logger)

	router := server.NewRouter(server.Handlers{
		Auth:   handler.NewAuthHandler(gate, sessions, auth.NewRegistry(provider), db.Users(), pages, handler.AuthOptions{CaptchaSiteKey: "site-key"}, logger),
		Pages:  handler.NewPageHandler(db.Users(), quotes, gelar, pages, logger),
		Quotes: handler.NewQuoteHandler(quotes, logger),
		Gelar:  handler.NewGelarHandler(gelar, logger),
	}, sessions, db.Users(), logger)

	return &testEnv{router: router, db: db, tokens: tokens, provider: provider, blobs: blobs}
}

// sessionCookie signs p in directly, skipping the provider round trip.
func (e *testEnv) sessionCookie(t *testing.T, p *auth.Principal) *http.Cookie {
	t.Helper()
	token, _, err := e.tokens.Issue(p, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: token}
}

func (e *testEnv) seedProfile(t *testing.T, id string, role model.Role) {
	t.Helper()
	require.NoError(t, e.db.Users().SetProfile(context.Background(), &model.UserProfile{
		ID: id, Name: id, Role: role,
	}))
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// multipartRequest builds a form with text fields and, when imageName is
// non-empty, an image part with the given content type.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, imageName, imageType string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if imageName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+imageName+`"`)
		h.Set("Content-Type", imageType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// cookieNamed returns the last Set-Cookie for name, which is the one a
// browser would keep.
func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// flowCookies returns the cookies HandleStart set, as a browser would send
// them back on the callback.
func flowCookies(rr *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, name := range []string{"oauth_state", "oauth_pkce", "oauth_entry"} {
		if c := cookieNamed(rr, name); c != nil {
			out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return out
}
