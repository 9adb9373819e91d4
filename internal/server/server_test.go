package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/auth"
	"scribe/internal/config"
	"scribe/internal/database"
	"scribe/internal/featureflags"
	"scribe/internal/mail"
	"scribe/internal/middleware"
	"scribe/internal/models"
	"scribe/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

const testSecret = "test-secret-that-is-long-enough-123456"

// captureMailer records outgoing mail.
type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}
	}
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	srv    *Server
	app    *fiber.App
	store  *repository.Store
	mailer *captureMailer
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:            testSecret,
		Port:                 "0",
		Env:                  "test",
		BaseURL:              "http://blog.test",
		StoreDriver:          config.StoreSQLite,
		ResetTokenTTLMinutes: 30,
		SessionTTLHours:      24,
		RememberTTLDays:      30,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	store := repository.NewGormStore(db, config.StoreSQLite)
	mailer := &captureMailer{}

	srv, err := NewServerWithDeps(cfg, Deps{Store: store, Mailer: mailer})
	require.NoError(t, err)
	app, err := srv.NewApp()
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return &testEnv{srv: srv, app: app, store: store, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) *http.Response {
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (e *testEnv) postForm(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookies...)
}

// createUser stores an account with a real password hash.
func (e *testEnv) createUser(t *testing.T, name, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		Username:   name,
		Email:      name + "@example.com",
		Password:   hash,
		DateJoined: time.Now().UTC(),
	}
	require.NoError(t, e.store.Users.Create(context.Background(), user))
	return user
}

func (e *testEnv) createPost(t *testing.T, author *models.User, title string, at time.Time) *models.Post {
	t.Helper()
	ctx := context.Background()
	post := &models.Post{AuthorID: author.ID, Title: title, Content: "content of " + title, DatePosted: at}
	require.NoError(t, e.store.Posts.Create(ctx, post))
	require.NoError(t, e.store.Users.AppendPost(ctx, author.ID, post.ID))
	return post
}

// login posts the login form and returns the session cookie.
func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	resp := e.postForm(t, "/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	cookie := findCookie(resp, middleware.SessionCookie)
	require.NotNil(t, cookie)
	return cookie
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

// flashes decodes the flash cookie set by a response.
func flashes(t *testing.T, resp *http.Response) []middleware.Flash {
	t.Helper()
	cookie := findCookie(resp, middleware.FlashCookie)
	if cookie == nil {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	require.NoError(t, err)
	var out []middleware.Flash
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func assertFlash(t *testing.T, resp *http.Response, category, message string) {
	t.Helper()
	assert.Contains(t, flashes(t, resp), middleware.Flash{Category: category, Message: message})
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "degraded", payload.Status)
	assert.Equal(t, "healthy", payload.Checks["store"])
	assert.Equal(t, "unavailable", payload.Checks["redis"])
	assert.Equal(t, config.StoreSQLite, payload.Checks["driver"])
}

func TestNewServerWithDeps_RequiresStore(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), Deps{})
	assert.Error(t, err)
}

func TestAPIPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "secret1")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.createPost(t, alice, "First", base)
	env.createPost(t, alice, "Second", base.Add(time.Hour))

	resp := env.get(t, "/api/posts")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var posts []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 2)
	assert.Equal(t, "Second", posts[0]["title"])
	assert.NotContains(t, posts[0], "id")

	details := posts[0]["author_details"].(map[string]interface{})
	assert.Equal(t, "alice", details["username"])
	assert.Equal(t, "alice@example.com", details["email"])
}

func TestAPIUsers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "secret1")
	env.createPost(t, alice, "First", time.Now().UTC())

	resp := env.get(t, "/api/users")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := body(t, resp)
	assert.Contains(t, text, `"username":"alice"`)
	assert.Contains(t, text, `"post_count":1`)
	assert.NotContains(t, text, "password")
	assert.NotContains(t, text, alice.ID)
}

func TestAPIUserPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "secret1")
	bob := env.createUser(t, "bob", "secret1")
	env.createPost(t, alice, "Alice writes", time.Now().UTC())
	env.createPost(t, bob, "Bob writes", time.Now().UTC())

	t.Run("lists only the user's posts", func(t *testing.T) {
		resp := env.get(t, "/api/users/"+alice.ID+"/posts")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var posts []models.APIPost
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
		require.Len(t, posts, 1)
		assert.Equal(t, "Alice writes", posts[0].Title)
	})

	t.Run("missing user", func(t *testing.T) {
		resp := env.get(t, "/api/users/does-not-exist/posts")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.JSONEq(t, `{"error":"User not found"}`, body(t, resp))
	})
}

func TestIsMachinePath(t *testing.T) {
	assert.True(t, isMachinePath("/api/posts"))
	assert.True(t, isMachinePath("/ws/feed"))
	assert.True(t, isMachinePath("/metrics"))
	assert.True(t, isMachinePath("/health/live"))
	assert.False(t, isMachinePath("/apiary"))
	assert.False(t, isMachinePath("/post/1/delete"))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/account", safeNext("/account"))
	assert.Equal(t, "/post/1?x=2", safeNext("/post/1?x=2"))
	assert.Equal(t, "", safeNext("//evil.test/x"))
	assert.Equal(t, "", safeNext("https://evil.test"))
	assert.Equal(t, "", safeNext(""))
	assert.Equal(t, "", safeNext(`/\evil.test`))
	assert.Equal(t, "", safeNext(`/post/1\x`))
	assert.Equal(t, "", safeNext("/\t/evil.test"))
	assert.Equal(t, "", safeNext("/account\r\nSet-Cookie: x=1"))
}

func TestFeatureFlags_DisableLiveFeed(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "live_feed=off,api_docs=off"
	env := newTestEnvWithConfig(t, cfg)

	resp := env.get(t, "/ws/feed")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.get(t, "/api/swagger/index.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeatureFlags_DefaultOn(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/ws/feed")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp = env.get(t, "/api/swagger/index.html")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeatureFlags_PercentRolloutPerUser(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "live_feed=50%"
	env := newTestEnvWithConfig(t, cfg)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	resp := env.get(t, "/ws/feed")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "anonymous visitors are outside a partial rollout")

	for _, name := range []string{"dana", "erin", "finn", "gwen"} {
		user := env.createUser(t, name, "secret1")
		session := env.login(t, name+"@example.com", "secret1")

		want := http.StatusNotFound
		if flags.Enabled(FlagLiveFeed, user.ID) {
			want = http.StatusUpgradeRequired
		}
		resp := env.get(t, "/ws/feed", session)
		assert.Equal(t, want, resp.StatusCode, name)
	}
}
