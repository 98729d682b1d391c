package transport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LinkLocker-Labs/linklocker-back/internal/auth"
	"github.com/LinkLocker-Labs/linklocker-back/internal/config"
	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
	"github.com/LinkLocker-Labs/linklocker-back/internal/service"
)

func TestCensorBody(t *testing.T) {
	b := `{
		"email": "email@email.com",
		"password": "123456789123"
	}`

	got := censorBody([]byte(b))
	assert.JSONEq(t, `{
		"email": "email@email.com",
		"password": "$censored"
	}`, string(got))
}

func TestCensorBody_NotJSON(t *testing.T) {
	got := censorBody([]byte("not json"))
	assert.Equal(t, "not json", string(got))
}

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.User{}))
	require.NoError(t, database.AutoMigrate(&db.Bookmark{}))

	log := zap.NewNop().Sugar()
	tokens := auth.NewJWTManager(&config.Config{JWTSecret: "test-secret"})
	hasher := auth.NewBcryptHasher()

	instance := HTTPServer{
		db:        database,
		auth:      service.NewAuth(database, hasher, tokens, log),
		users:     service.NewUsers(database, log),
		bookmarks: service.NewBookmarks(database, log),
		tokens:    tokens,
		logger:    log,
	}

	ts := httptest.NewServer(instance.router())
	t.Cleanup(ts.Close)
	return ts, database
}

func signupFor(t *testing.T, client *resty.Client, email, password string) string {
	t.Helper()

	got := TokenResp{}
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetResult(&got).
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/auth/signup")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	require.NotEmpty(t, got.AccessToken)
	return got.AccessToken
}

func TestEndToEnd(t *testing.T) {
	ts, _ := newTestServer(t)
	client := resty.New().SetBaseURL(ts.URL)

	token := signupFor(t, client, "email@x.com", "123")

	t.Run("duplicate signup is forbidden", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"email": "email@x.com", "password": "other"}).
			Post("/auth/signup")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})

	t.Run("signin failures are indistinguishable", func(t *testing.T) {
		wrongPass, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"email": "email@x.com", "password": "wrong"}).
			Post("/auth/signin")
		require.NoError(t, err)
		unknown, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"email": "nobody@x.com", "password": "123"}).
			Post("/auth/signin")
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, wrongPass.StatusCode())
		assert.Equal(t, http.StatusForbidden, unknown.StatusCode())
		assert.Equal(t, wrongPass.String(), unknown.String())
	})

	t.Run("signin returns a token", func(t *testing.T) {
		got := TokenResp{}
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetResult(&got).
			SetBody(map[string]string{"email": "email@x.com", "password": "123"}).
			Post("/auth/signin")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.NotEmpty(t, got.AccessToken)
	})

	t.Run("protected routes reject missing and bad tokens", func(t *testing.T) {
		resp, err := client.R().Get("/bookmarks")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

		resp, err = client.R().
			SetHeader("Authorization", "Bearer not.a.jwt").
			Get("/bookmarks")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

		resp, err = client.R().
			SetHeader("Authorization", "Basic something").
			Get("/bookmarks")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})

	var bookmarkID uint64

	t.Run("create bookmark", func(t *testing.T) {
		got := BookmarkResp{}
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetAuthToken(token).
			SetResult(&got).
			SetBody(map[string]string{"title": "T", "link": "https://l"}).
			Post("/bookmarks")
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode())

		assert.NotZero(t, got.ID)
		assert.NotZero(t, got.UserID)
		require.NotNil(t, got.Title)
		assert.Equal(t, "T", *got.Title)

		bookmarkID = got.ID
	})

	t.Run("create bookmark without link is a validation error", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetAuthToken(token).
			SetBody(map[string]string{"title": "T"}).
			Post("/bookmarks")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	})

	t.Run("list contains the bookmark", func(t *testing.T) {
		got := []BookmarkResp{}
		resp, err := client.R().
			SetAuthToken(token).
			SetResult(&got).
			Get("/bookmarks")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.Len(t, got, 1)
		assert.Equal(t, bookmarkID, got[0].ID)
	})

	t.Run("patch bookmark", func(t *testing.T) {
		got := BookmarkResp{}
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetAuthToken(token).
			SetResult(&got).
			SetBody(map[string]string{"description": "about T"}).
			Patch(fmt.Sprintf("/bookmarks/%d", bookmarkID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.NotNil(t, got.Description)
		assert.Equal(t, "about T", *got.Description)
	})

	t.Run("another user cannot see or touch it", func(t *testing.T) {
		otherToken := signupFor(t, client, "other@x.com", "456")

		resp, err := client.R().
			SetAuthToken(otherToken).
			Get(fmt.Sprintf("/bookmarks/%d", bookmarkID))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())

		resp, err = client.R().
			SetHeader("Content-Type", "application/json").
			SetAuthToken(otherToken).
			SetBody(map[string]string{"title": "hijacked"}).
			Patch(fmt.Sprintf("/bookmarks/%d", bookmarkID))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())

		resp, err = client.R().
			SetAuthToken(otherToken).
			Delete(fmt.Sprintf("/bookmarks/%d", bookmarkID))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	})

	t.Run("profile read and edit", func(t *testing.T) {
		got := UserResp{}
		resp, err := client.R().
			SetAuthToken(token).
			SetResult(&got).
			Get("/users/me")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "email@x.com", got.Email)

		updated := UserResp{}
		resp, err = client.R().
			SetHeader("Content-Type", "application/json").
			SetAuthToken(token).
			SetResult(&updated).
			SetBody(map[string]string{"firstName": "Ada"}).
			Patch("/users")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.NotNil(t, updated.FirstName)
		assert.Equal(t, "Ada", *updated.FirstName)
	})

	t.Run("delete then get", func(t *testing.T) {
		resp, err := client.R().
			SetAuthToken(token).
			Delete(fmt.Sprintf("/bookmarks/%d", bookmarkID))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode())

		resp, err = client.R().
			SetAuthToken(token).
			Get(fmt.Sprintf("/bookmarks/%d", bookmarkID))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	})
}

func TestStaleTokenRejected(t *testing.T) {
	ts, database := newTestServer(t)
	client := resty.New().SetBaseURL(ts.URL)

	token := signupFor(t, client, "gone@x.com", "123")

	// the token is still cryptographically valid, but the subject is gone
	require.NoError(t, database.Where("email = ?", "gone@x.com").Delete(&db.User{}).Error)

	resp, err := client.R().
		SetAuthToken(token).
		Get("/users/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestSignupValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	client := resty.New().SetBaseURL(ts.URL)

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"password": "123"}`},
		{"missing password", `{"email": "email@x.com"}`},
		{"not an email", `{"email": "nope", "password": "123"}`},
		{"empty body", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := client.R().
				SetHeader("Content-Type", "application/json").
				SetBody(tc.body).
				Post("/auth/signup")
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		})
	}
}
