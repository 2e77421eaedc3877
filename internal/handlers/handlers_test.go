package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/steinfletcher/apitest"

	"github.com/secretshare/webserver/internal/auth"
	"github.com/secretshare/webserver/internal/events"
	"github.com/secretshare/webserver/internal/services"
	"github.com/secretshare/webserver/internal/session"
	"github.com/secretshare/webserver/internal/store"
	"github.com/secretshare/webserver/internal/web"
	"github.com/secretshare/webserver/types"
)

// memRepo is an in-memory services.UserRepository with the store's
// uniqueness and find-or-create semantics.
type memRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int]types.User)}
}

func (r *memRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memRepo) Update(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memRepo) SetSecret(_ context.Context, id int, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Secret = &secret
	r.users[id] = user
	return nil
}

func (r *memRepo) ListWithSecrets(_ context.Context) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []types.User
	for _, user := range r.users {
		if user.Secret != nil {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *memRepo) FindOrCreateByGoogleID(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.GoogleID != nil && user.GoogleID != nil && *existing.GoogleID == *user.GoogleID {
			return existing, nil
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memRepo) FindOrCreateByFacebookID(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.FacebookID != nil && user.FacebookID != nil && *existing.FacebookID == *user.FacebookID {
			return existing, nil
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

type testApp struct {
	router *chi.Mux
	repo   *memRepo
}

func newTestApp(t *testing.T, providers ...*auth.OAuthProvider) *testApp {
	t.Helper()

	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	sessions, err := session.NewManager("handler-test-secret")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	repo := newMemRepo()
	users := services.NewUserService(repo, events.NewPublisher(nil, zerolog.Nop()))
	avatars := services.NewAvatarService(nil)
	verifier := auth.NewLocalVerifier(users)
	resolver := auth.NewResolver(users)

	router := chi.NewRouter()
	router.Use(sessions.Middleware)
	router.Get("/healthz", Healthz)
	PageRouter(router, users, renderer, session.RequireAuth)
	AuthRouter(router, verifier, users, sessions, renderer)
	OAuthRouter(router, NewOAuthHandler(resolver, users, sessions, avatars), providers...)
	AvatarRouter(router, avatars)

	return &testApp{router: router, repo: repo}
}

// client returns an HTTP client with a cookie jar that does not follow
// redirects, so every 302 can be asserted.
func (app *testApp) client(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	server := httptest.NewServer(app.router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return server, &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.Post(target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, client *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func bodyContains(resp *http.Response, want string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), want) {
		return fmt.Errorf("body does not contain %q", want)
	}
	return nil
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	apitest.Handler(app.router).
		Get("/healthz").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"status":"ok"}`).
		End()
}

func TestHomePage(t *testing.T) {
	app := newTestApp(t)
	apitest.Handler(app.router).
		Get("/").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestRegisterEstablishesSession(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	resp := postForm(t, client, server.URL+"/register", url.Values{
		"username": {"alice"},
		"password": {"pw1"},
	})
	assertRedirect(t, resp, "/secrets")

	// The session was established before the redirect, so the submit
	// view is immediately reachable.
	if resp := get(t, client, server.URL+"/submit"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected submit view after register, got %d", resp.StatusCode)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw1"}})
	resp := postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw2"}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	if len(app.repo.users) != 1 {
		t.Fatalf("expected one user, got %d", len(app.repo.users))
	}
}

func TestRegisterMissingFields(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	resp := postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginAfterRegister(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw1"}})
	get(t, client, server.URL+"/logout")

	resp := postForm(t, client, server.URL+"/login", url.Values{"username": {"alice"}, "password": {"pw1"}})
	assertRedirect(t, resp, "/secrets")
}

func TestLoginWrongPasswordEstablishesNoSession(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw1"}})
	get(t, client, server.URL+"/logout")

	resp := postForm(t, client, server.URL+"/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	if resp := get(t, client, server.URL+"/submit"); resp.StatusCode != http.StatusFound {
		t.Fatalf("expected anonymous redirect from /submit, got %d", resp.StatusCode)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	resp := postForm(t, client, server.URL+"/login", url.Values{"username": {"ghost"}, "password": {"pw"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSubmitAnonymousRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	resp := get(t, client, server.URL+"/submit")
	assertRedirect(t, resp, "/login")
}

func TestSubmitAndListSecrets(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw1"}})
	resp := postForm(t, client, server.URL+"/submit", url.Values{"secret": {"hello"}})
	assertRedirect(t, resp, "/secrets")

	// The listing is public: assert with a fresh, anonymous client.
	apitest.Handler(app.router).
		Get("/secrets").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, req *http.Request) error {
			return bodyContains(res, "hello")
		}).
		End()
}

func TestSecretsListsOnlyUsersWithSecrets(t *testing.T) {
	app := newTestApp(t)
	secret := "shared-secret"
	app.repo.users[1] = types.User{ID: 1, Username: "with", Secret: &secret}
	app.repo.users[2] = types.User{ID: 2, Username: "without"}
	app.repo.nextID = 2

	apitest.Handler(app.router).
		Get("/secrets").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, req *http.Request) error {
			return bodyContains(res, "shared-secret")
		}).
		End()
}

func TestLogoutFullyInvalidatesSession(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw1"}})
	resp := get(t, client, server.URL+"/logout")
	assertRedirect(t, resp, "/")

	resp = get(t, client, server.URL+"/submit")
	assertRedirect(t, resp, "/login")
}

func TestSubmitEmptySecretRerendersForm(t *testing.T) {
	app := newTestApp(t)
	server, client := app.client(t)

	postForm(t, client, server.URL+"/register", url.Values{"username": {"alice"}, "password": {"pw1"}})
	resp := postForm(t, client, server.URL+"/submit", url.Values{"secret": {"  "}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty secret, got %d", resp.StatusCode)
	}
}
