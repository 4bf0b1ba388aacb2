//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RegisterUser creates a new account and returns the auth token and user ID.
func (env *TestEnv) RegisterUser(username, email, password string) (token string, userID uuid.UUID) {
	env.t.Helper()
	resp := env.POST("/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("RegisterUser: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token  string    `json:"token"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("RegisterUser: decode: %v", err)
	}
	return result.Token, result.UserID
}

// LoginUser authenticates an existing user and returns the auth token.
func (env *TestEnv) LoginUser(username, password string) string {
	env.t.Helper()
	resp := env.POST("/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("LoginUser: expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("LoginUser: decode: %v", err)
	}
	return result.Token
}

// PromoteSuperuser flips the superuser flag directly in the database.
// Callers must log in again afterwards so the token carries the new claim.
func (env *TestEnv) PromoteSuperuser(userID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag, err := env.Pool.Exec(ctx,
		"UPDATE users SET is_superuser = true WHERE id = $1", userID)
	if err != nil {
		env.t.Fatalf("PromoteSuperuser: %v", err)
	}
	if tag.RowsAffected() != 1 {
		env.t.Fatalf("PromoteSuperuser: user %s not found", userID)
	}
}

// RegisterSuperuser registers an account, promotes it and returns a token
// whose claims carry the superuser flag.
func (env *TestEnv) RegisterSuperuser(username, email, password string) (token string, userID uuid.UUID) {
	env.t.Helper()
	_, userID = env.RegisterUser(username, email, password)
	env.PromoteSuperuser(userID)
	return env.LoginUser(username, password), userID
}

// CreateGame creates a game as the given (superuser) token and returns its code.
func (env *TestEnv) CreateGame(token string, buyIn int64) string {
	env.t.Helper()
	resp := env.POST("/games", map[string]interface{}{
		"buy_in": buyIn,
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateGame: expected 201, got %d", resp.StatusCode)
	}

	var game struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&game); err != nil {
		env.t.Fatalf("CreateGame: decode: %v", err)
	}
	return game.Code
}

// JoinGame joins the user behind the token to the given game.
func (env *TestEnv) JoinGame(token, code string) {
	env.t.Helper()
	resp := env.POST("/games/join", map[string]string{"code": code}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("JoinGame: expected 201, got %d", resp.StatusCode)
	}
}

// SeedEpisodes inserts n catalog episodes numbered 1..n and returns their IDs in order.
func (env *TestEnv) SeedEpisodes(n int) []uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids := make([]uuid.UUID, 0, n)
	base := time.Date(1999, 10, 20, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		id := uuid.New()
		_, err := env.Pool.Exec(ctx,
			`INSERT INTO episodes (id, number, title_en, title_pl, release_date, is_filler)
			 VALUES ($1, $2, $3, $4, $5, false)`,
			id, i, fmt.Sprintf("Episode %d", i), fmt.Sprintf("Odcinek %d", i),
			base.AddDate(0, 0, 7*(i-1)))
		if err != nil {
			env.t.Fatalf("SeedEpisodes: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// Do performs a request and returns the error instead of failing the test,
// so it is safe to call from spawned goroutines.
func (env *TestEnv) Do(method, path string, body interface{}, token string) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.PostWithHeaders(path, body, token, nil)
}

// PostWithHeaders performs a POST request with optional auth token and extra headers.
func (env *TestEnv) PostWithHeaders(path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// OPTIONS performs a CORS preflight request.
func (env *TestEnv) OPTIONS(path string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("OPTIONS", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: new request: %v", path, err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: %v", path, err)
	}
	return resp
}
