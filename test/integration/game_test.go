//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/pokernight/platform/test/integration/testutil"
)

var gameCodeRe = regexp.MustCompile(`^[A-Z]{8}$`)

func decodeBody(resp *http.Response, dst interface{}) error {
	return json.NewDecoder(resp.Body).Decode(dst)
}

func TestGameLifecycle(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	bobToken, _ := env.RegisterUser("bob", "bob@poker.example", "password123")
	carolToken, _ := env.RegisterUser("carol", "carol@poker.example", "password123")

	code := env.CreateGame(ownerToken, 5000)
	require.Regexp(t, gameCodeRe, code)

	env.JoinGame(bobToken, code)
	env.JoinGame(carolToken, code)

	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "poker.game.created"))
	assert.Equal(t, 2, testutil.CountOutboxEvents(t, env, "poker.game.player.joined"))

	// Joining twice is rejected.
	resp := env.POST("/games/join", map[string]string{"code": code}, bobToken)
	testutil.AssertStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Membership check for a joined player.
	resp = env.AuthGET("/games/"+code+"/membership", bobToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var membership struct {
		IsInGame    bool `json:"is_in_game"`
		IsGameEnded bool `json:"is_game_ended"`
	}
	testutil.DecodeJSON(t, resp, &membership)
	assert.True(t, membership.IsInGame)
	assert.False(t, membership.IsGameEnded)

	// The superuser sees the whole table.
	resp = env.AuthGET("/games/"+code+"/players", ownerToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var table struct {
		BuyIn   int64 `json:"buy_in"`
		Players []struct {
			Name  string `json:"name"`
			Stack int64  `json:"stack"`
		} `json:"players"`
	}
	testutil.DecodeJSON(t, resp, &table)
	assert.Equal(t, int64(5000), table.BuyIn)
	require.Len(t, table.Players, 3)
	for _, p := range table.Players {
		assert.Equal(t, int64(5000), p.Stack, "player %s", p.Name)
	}

	// A regular player only sees their own stack.
	resp = env.AuthGET("/games/"+code+"/players", bobToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &table)
	require.Len(t, table.Players, 1)
	assert.Equal(t, "bob", table.Players[0].Name)

	// Rebuy doubles bob's stack, undo restores it.
	resp = env.POST("/games/"+code+"/actions", map[string]interface{}{"username": "bob"}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.AuthGET("/games/"+code+"/players", bobToken)
	testutil.DecodeJSON(t, resp, &table)
	assert.Equal(t, int64(10000), table.Players[0].Stack)

	resp = env.POST("/games/"+code+"/actions",
		map[string]interface{}{"username": "bob", "undo": true}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.AuthGET("/games/"+code+"/players", bobToken)
	testutil.DecodeJSON(t, resp, &table)
	assert.Equal(t, int64(5000), table.Players[0].Stack)

	// Undoing the initial buy-in is not allowed.
	resp = env.POST("/games/"+code+"/actions",
		map[string]interface{}{"username": "bob", "undo": true}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// Only superusers may undo.
	resp = env.POST("/games/"+code+"/actions",
		map[string]interface{}{"username": "bob", "undo": true}, bobToken)
	testutil.AssertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Live table data.
	resp = env.AuthGET("/games/"+code+"/data", bobToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var data struct {
		MoneyOnTable    int64 `json:"money_on_table"`
		NumberOfPlayers int   `json:"number_of_players"`
		AvgStack        int64 `json:"avg_stack"`
	}
	testutil.DecodeJSON(t, resp, &data)
	assert.Equal(t, int64(15000), data.MoneyOnTable)
	assert.Equal(t, 3, data.NumberOfPlayers)
	assert.Equal(t, int64(5000), data.AvgStack)
}

func TestGameCreateUsesDefaultBuyIn(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")

	resp := env.POST("/games", map[string]interface{}{}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusCreated)
	var game struct {
		Code  string `json:"code"`
		BuyIn int64  `json:"buy_in"`
	}
	testutil.DecodeJSON(t, resp, &game)
	assert.Equal(t, int64(5000), game.BuyIn)
}

func TestJoinUnknownGame(t *testing.T) {
	env := testutil.NewTestEnv(t)

	token, _ := env.RegisterUser("bob", "bob@poker.example", "password123")

	resp := env.POST("/games/join", map[string]string{"code": "ZZZZZZZZ"}, token)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "NOT_FOUND")
}

func TestEndGameSettlement(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	bobToken, _ := env.RegisterUser("bob", "bob@poker.example", "password123")
	carolToken, _ := env.RegisterUser("carol", "carol@poker.example", "password123")

	code := env.CreateGame(ownerToken, 5000)
	env.JoinGame(bobToken, code)
	env.JoinGame(carolToken, code)

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 15000},
			{"username": "bob", "buy_in": 5000, "cash_out": 0},
			{"username": "carol", "buy_in": 5000, "cash_out": 0},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var result struct {
		Code      string  `json:"code"`
		Duration  float64 `json:"duration_hours"`
		Transfers []struct {
			Sender   string `json:"sender"`
			Receiver string `json:"receiver"`
			Amount   int64  `json:"amount"`
		} `json:"transfers"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.Equal(t, code, result.Code)
	require.Len(t, result.Transfers, 2)
	var total int64
	for _, tr := range result.Transfers {
		assert.Equal(t, "alice", tr.Receiver)
		assert.Equal(t, int64(5000), tr.Amount)
		total += tr.Amount
	}
	assert.Equal(t, int64(10000), total, "transfers should cover alice's win")

	gameID := testutil.GameID(t, env, code)
	assert.Equal(t, 3, testutil.CountStatistics(t, env, gameID))
	assert.Equal(t, 2, testutil.CountDebts(t, env, gameID))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "poker.game.closed"))
	assert.Equal(t, 2, testutil.CountOutboxEvents(t, env, "poker.debt.created"))
	assert.Equal(t, 3, testutil.CountOutboxEvents(t, env, "poker.notification.game_summary"))

	// A second close attempt is rejected.
	resp = env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 5000},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "ALREADY_CLOSED")

	// So are rebuys and joins on a closed game.
	resp = env.POST("/games/"+code+"/actions",
		map[string]interface{}{"username": "bob"}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	daveToken, _ := env.RegisterUser("dave", "dave@poker.example", "password123")
	resp = env.POST("/games/join", map[string]string{"code": code}, daveToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Membership now reports the game as ended.
	resp = env.AuthGET("/games/"+code+"/membership", bobToken)
	var membership struct {
		IsInGame    bool `json:"is_in_game"`
		IsGameEnded bool `json:"is_game_ended"`
	}
	testutil.DecodeJSON(t, resp, &membership)
	assert.True(t, membership.IsInGame)
	assert.True(t, membership.IsGameEnded)
}

// Two simultaneous close requests race on the game's row lock; exactly one
// may win, and the loser must see the game already closed. The settlement
// side effects are written once.
func TestEndGameConcurrentClose(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	bobToken, _ := env.RegisterUser("bob", "bob@poker.example", "password123")

	code := env.CreateGame(ownerToken, 5000)
	env.JoinGame(bobToken, code)

	body := map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 10000},
			{"username": "bob", "buy_in": 5000, "cash_out": 0},
		},
	}

	type outcome struct {
		status int
		code   string
	}
	results := make(chan outcome, 2)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			resp, err := env.Do("POST", "/games/"+code+"/end", body, ownerToken)
			if err != nil {
				results <- outcome{status: -1}
				return
			}
			defer resp.Body.Close()
			var errBody struct {
				Code string `json:"code"`
			}
			_ = decodeBody(resp, &errBody)
			results <- outcome{status: resp.StatusCode, code: errBody.Code}
		}()
	}
	start.Done()
	done.Wait()
	close(results)

	statuses := make(map[int]int)
	var loserCode string
	for r := range results {
		statuses[r.status]++
		if r.status == http.StatusConflict {
			loserCode = r.code
		}
	}
	assert.Equal(t, 1, statuses[http.StatusOK], "exactly one close may succeed: %v", statuses)
	assert.Equal(t, 1, statuses[http.StatusConflict], "the racing close must lose: %v", statuses)
	assert.Equal(t, "ALREADY_CLOSED", loserCode)

	// The winner's writes landed exactly once.
	gameID := testutil.GameID(t, env, code)
	assert.Equal(t, 2, testutil.CountStatistics(t, env, gameID))
	assert.Equal(t, 1, testutil.CountDebts(t, env, gameID))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "poker.game.closed"))
}

// With a mock clock the close timestamps are exact: the game's duration is
// precisely the time advanced between create and end.
func TestEndGameDurationWithMockClock(t *testing.T) {
	clock := quartz.NewMock(t)
	env := testutil.NewTestEnvWithClock(t, clock)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	code := env.CreateGame(ownerToken, 5000)

	clock.Advance(2*time.Hour + 30*time.Minute)
	endTime := clock.Now()

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 5000},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var result struct {
		EndTime  time.Time `json:"end_time"`
		Duration float64   `json:"duration_hours"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.Equal(t, 2.5, result.Duration)
	assert.True(t, result.EndTime.Equal(endTime), "end_time %s != clock %s", result.EndTime, endTime)

	var durationUS int64
	err := env.Pool.QueryRow(t.Context(),
		"SELECT duration_us FROM games WHERE code = $1", code).Scan(&durationUS)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000_000_000), durationUS)
}

func TestEndGameImbalancedBatch(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	bobToken, _ := env.RegisterUser("bob", "bob@poker.example", "password123")

	code := env.CreateGame(ownerToken, 5000)
	env.JoinGame(bobToken, code)

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 9000},
			{"username": "bob", "buy_in": 5000, "cash_out": 0},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, "IMBALANCED_BATCH")

	// Nothing was persisted.
	gameID := testutil.GameID(t, env, code)
	assert.Zero(t, testutil.CountDebts(t, env, gameID))
	assert.Zero(t, testutil.CountStatistics(t, env, gameID))
}

func TestEndGameEmptyBatch(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	code := env.CreateGame(ownerToken, 5000)

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, "EMPTY_BATCH")
}

func TestEndGameUnknownPlayer(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	code := env.CreateGame(ownerToken, 5000)

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 6000},
			{"username": "ghost", "buy_in": 5000, "cash_out": 4000},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "UNKNOWN_PLAYER")
}

func TestEndGamePlayerNotInGame(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	env.RegisterUser("bob", "bob@poker.example", "password123")

	// bob exists but never joined.
	code := env.CreateGame(ownerToken, 5000)

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 4000},
			{"username": "bob", "buy_in": 5000, "cash_out": 6000},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "PLAYER_NOT_IN_GAME")
}

func TestEndGameIdempotencyKey(t *testing.T) {
	env := testutil.NewTestEnv(t)

	ownerToken, _ := env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	code := env.CreateGame(ownerToken, 5000)

	body := map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 5000},
		},
	}
	headers := map[string]string{"Idempotency-Key": "end-" + code}

	resp := env.PostWithHeaders("/games/"+code+"/end", body, ownerToken, headers)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// A replay with the same key is refused before touching the game.
	resp = env.PostWithHeaders("/games/"+code+"/end", body, ownerToken, headers)
	testutil.AssertStatus(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "CONFLICT")
}
