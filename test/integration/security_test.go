//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/pokernight/platform/test/integration/testutil"
)

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := testutil.NewTestEnv(t)

	paths := []string{
		"/users/me",
		"/users/me/stats",
		"/debts",
		"/episodes",
	}
	for _, path := range paths {
		resp := env.GET(path)
		testutil.AssertStatus(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	}

	resp := env.AuthGET("/users/me", "not-a-real-token")
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestSuperuserOnlyRoutes(t *testing.T) {
	env := testutil.NewTestEnv(t)

	token, _ := env.RegisterUser("pleb", "pleb@poker.example", "password123")

	resp := env.POST("/games", map[string]interface{}{"buy_in": 5000}, token)
	testutil.AssertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.POST("/games/ABCDEFGH/end", map[string]interface{}{
		"players": []map[string]interface{}{},
	}, token)
	testutil.AssertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.AuthGET("/users/me/superuser", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var flag struct {
		IsSuperuser bool `json:"is_superuser"`
	}
	testutil.DecodeJSON(t, resp, &flag)
	assert.False(t, flag.IsSuperuser)
}

func TestAuthRateLimit(t *testing.T) {
	env := testutil.NewTestEnv(t)

	// Burn through the per-IP window, then expect a throttle.
	for i := 0; i < 10; i++ {
		resp := env.POST("/auth/login", map[string]string{
			"username": "nobody",
			"password": "whatever123",
		}, "")
		resp.Body.Close()
	}

	resp := env.POST("/auth/login", map[string]string{
		"username": "nobody",
		"password": "whatever123",
	}, "")
	testutil.AssertStatus(t, resp, http.StatusTooManyRequests)
	testutil.AssertErrorCode(t, resp, "RATE_LIMITED")
}

func TestCORSPreflight(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.OPTIONS("/auth/login")
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusNoContent)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoint(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/health")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var body struct {
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}
