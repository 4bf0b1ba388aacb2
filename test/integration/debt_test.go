//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/pokernight/platform/test/integration/testutil"
)

type debtEntry struct {
	ID          uuid.UUID `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Money       int64     `json:"money"`
	PhoneNumber string    `json:"phone_number"`
	Type        string    `json:"type"`
}

func listDebts(t *testing.T, env *testutil.TestEnv, token string) []debtEntry {
	t.Helper()
	resp := env.AuthGET("/debts", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var entries []debtEntry
	testutil.DecodeJSON(t, resp, &entries)
	return entries
}

// endHeadsUpGame sets up a two-player game where bob loses his whole stack to
// alice, producing exactly one debt of 5000 from bob to alice.
func endHeadsUpGame(t *testing.T, env *testutil.TestEnv) (ownerToken, bobToken string) {
	t.Helper()

	ownerToken, _ = env.RegisterSuperuser("alice", "alice@poker.example", "password123")
	bobToken, _ = env.RegisterUser("bob", "bob@poker.example", "password123")

	code := env.CreateGame(ownerToken, 5000)
	env.JoinGame(bobToken, code)

	resp := env.POST("/games/"+code+"/end", map[string]interface{}{
		"players": []map[string]interface{}{
			{"username": "alice", "buy_in": 5000, "cash_out": 10000},
			{"username": "bob", "buy_in": 5000, "cash_out": 0},
		},
	}, ownerToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	return ownerToken, bobToken
}

func TestDebtSendAcceptFlow(t *testing.T) {
	env := testutil.NewTestEnv(t)

	aliceToken, bobToken := endHeadsUpGame(t, env)

	// The loser sees an outgoing debt, the winner sees nothing yet.
	bobDebts := listDebts(t, env, bobToken)
	require.Len(t, bobDebts, 1)
	debt := bobDebts[0]
	assert.Equal(t, "outgoing", debt.Type)
	assert.Equal(t, "bob", debt.From)
	assert.Equal(t, "alice", debt.To)
	assert.Equal(t, int64(5000), debt.Money)
	assert.Empty(t, listDebts(t, env, aliceToken))

	// Only the sender may mark a debt sent.
	resp := env.POST("/debts/"+debt.ID.String()+"/send", nil, aliceToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.POST("/debts/"+debt.ID.String()+"/send", nil, bobToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var sent struct {
		IsSent bool `json:"is_sent"`
	}
	testutil.DecodeJSON(t, resp, &sent)
	assert.True(t, sent.IsSent)

	// Sending twice is rejected.
	resp = env.POST("/debts/"+debt.ID.String()+"/send", nil, bobToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// The debt moved from bob's list to alice's, now incoming.
	assert.Empty(t, listDebts(t, env, bobToken))
	aliceDebts := listDebts(t, env, aliceToken)
	require.Len(t, aliceDebts, 1)
	assert.Equal(t, "incoming", aliceDebts[0].Type)
	assert.Equal(t, "bob", aliceDebts[0].From)

	// Only the receiver may accept.
	resp = env.POST("/debts/"+debt.ID.String()+"/accept", nil, bobToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.POST("/debts/"+debt.ID.String()+"/accept", nil, aliceToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var accepted struct {
		IsAccepted bool `json:"is_accepted"`
	}
	testutil.DecodeJSON(t, resp, &accepted)
	assert.True(t, accepted.IsAccepted)

	// A settled debt disappears from both lists.
	assert.Empty(t, listDebts(t, env, aliceToken))
	assert.Empty(t, listDebts(t, env, bobToken))

	// Both transitions were recorded in the outbox.
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "poker.debt.sent"))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "poker.debt.accepted"))
}

func TestDebtAcceptRequiresSend(t *testing.T) {
	env := testutil.NewTestEnv(t)

	aliceToken, bobToken := endHeadsUpGame(t, env)

	debts := listDebts(t, env, bobToken)
	require.Len(t, debts, 1)

	// Accepting an unsent debt fails even for the receiver.
	resp := env.POST("/debts/"+debts[0].ID.String()+"/accept", nil, aliceToken)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestDebtListEmpty(t *testing.T) {
	env := testutil.NewTestEnv(t)

	token, _ := env.RegisterUser("loner", "loner@poker.example", "password123")

	resp := env.AuthGET("/debts", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var entries []debtEntry
	testutil.DecodeJSON(t, resp, &entries)
	assert.NotNil(t, entries, "expected an empty array, not null")
	assert.Empty(t, entries)
}
