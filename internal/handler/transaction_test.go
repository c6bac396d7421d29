package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionsRequireAuth(t *testing.T) {
	h := newTestHandler(t)

	rec, body := doJSON(t, h, http.MethodGet, "/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}

func TestRecordAndListTransactions(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "a@x.com", "Secret1!")
	access, _ := login(t, h, "a@x.com", "Secret1!")

	rec, body := doJSON(t, h, http.MethodPost, "/transactions", access, map[string]any{
		"amountCents": -1250,
		"currency":    "usd",
		"category":    "groceries",
		"note":        "weekly shop",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tx, ok := body["transaction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(-1250), tx["amountCents"])
	assert.Equal(t, "USD", tx["currency"], "currency code is normalized")

	rec, body = doJSON(t, h, http.MethodGet, "/transactions", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list, ok := body["transactions"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestRecordTransactionBadCurrency(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "a@x.com", "Secret1!")
	access, _ := login(t, h, "a@x.com", "Secret1!")

	rec, body := doJSON(t, h, http.MethodPost, "/transactions", access, map[string]any{
		"amountCents": 100,
		"currency":    "dollars",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, body))
}

func TestTransactionsRemovedWithAccount(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "a@x.com", "Secret1!")
	access, _ := login(t, h, "a@x.com", "Secret1!")

	rec, _ := doJSON(t, h, http.MethodPost, "/transactions", access, map[string]any{
		"amountCents": -500,
		"currency":    "USD",
		"category":    "coffee",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = doJSON(t, h, http.MethodDelete, "/auth/me", access, map[string]string{
		"email":    "a@x.com",
		"password": "Secret1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The new owner of the email starts with a clean slate.
	register(t, h, "a@x.com", "Secret1!")
	access, _ = login(t, h, "a@x.com", "Secret1!")

	rec, body := doJSON(t, h, http.MethodGet, "/transactions", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list, _ := body["transactions"].([]any)
	assert.Empty(t, list)
}
