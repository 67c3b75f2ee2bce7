package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lottopay/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "EQPlatformWalletAddressAAAAAAAAAAAAAAAAAAAAAAAAA"

func TestClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/"+testWallet+"/balance", r.URL.Path)
		assert.Equal(t, "native", r.URL.Query().Get("currency"))
		json.NewEncoder(w).Encode(map[string]string{"balance": "123.456"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	balance, err := client.GetBalance(context.Background(), models.CurrencyNative)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("123.456")))
}

func TestClient_GetTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "lt:100", r.URL.Query().Get("after"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]any{
			"transfers": []map[string]any{
				{"hash": "h1", "from_address": "sender", "amount": "25.5", "currency": "native", "comment": "dep_abc", "cursor": "lt:101"},
			},
			"next_cursor": "lt:101",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", testWallet)

	transfers, cursor, err := client.GetTransactions(context.Background(), "lt:100", 50)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "h1", transfers[0].Hash)
	assert.Equal(t, models.CurrencyNative, transfers[0].Currency)
	assert.True(t, transfers[0].Amount.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, "lt:101", cursor)
}

func TestClient_GetTransactions_KeepsCursorWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"transfers": []any{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	transfers, cursor, err := client.GetTransactions(context.Background(), "lt:100", 50)
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.Equal(t, "lt:100", cursor)
}

func TestClient_SendNative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "EQRecipient", req["to"])
		assert.Equal(t, "9.95", req["amount"])
		assert.Equal(t, "wd_ref", req["comment"])
		assert.Nil(t, req["payload"])

		json.NewEncoder(w).Encode(map[string]string{"tx_hash": "sent-hash"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	hash, err := client.SendNative(context.Background(), "EQRecipient", decimal.RequireFromString("9.95"), "wd_ref")
	require.NoError(t, err)
	assert.Equal(t, "sent-hash", hash)
}

func TestClient_SendNative_MissingHashIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	_, err := client.SendNative(context.Background(), "EQRecipient", decimal.NewFromInt(1), "")
	assert.Error(t, err)
}

func TestClient_SendToken(t *testing.T) {
	var tokenWalletLookups atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/accounts/"+testWallet+"/token-wallet":
			tokenWalletLookups.Add(1)
			json.NewEncoder(w).Encode(map[string]string{"address": "EQTokenWallet"})
		case r.URL.Path == "/v1/accounts/"+testWallet+"/send":
			var req struct {
				To      string          `json:"to"`
				Amount  decimal.Decimal `json:"amount"`
				Payload *struct {
					Op          string          `json:"op"`
					Destination string          `json:"destination"`
					Amount      decimal.Decimal `json:"amount"`
					Comment     string          `json:"comment"`
				} `json:"payload"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			// The outer message targets the token wallet; the recipient and
			// amount travel in the wrapped payload
			assert.Equal(t, "EQTokenWallet", req.To)
			assert.True(t, req.Amount.IsZero())
			require.NotNil(t, req.Payload)
			assert.Equal(t, "transfer", req.Payload.Op)
			assert.Equal(t, "EQRecipient", req.Payload.Destination)
			assert.True(t, req.Payload.Amount.Equal(decimal.NewFromInt(100)))
			assert.Equal(t, "po_7", req.Payload.Comment)

			json.NewEncoder(w).Encode(map[string]string{"tx_hash": "token-hash"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	hash, err := client.SendToken(context.Background(), "EQRecipient", decimal.NewFromInt(100), "po_7")
	require.NoError(t, err)
	assert.Equal(t, "token-hash", hash)

	// Resolution result is cached across sends
	_, err = client.SendToken(context.Background(), "EQRecipient", decimal.NewFromInt(100), "po_7")
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenWalletLookups.Load())
}

func TestClient_FindTransferByComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("comment") {
		case "wd_landed":
			json.NewEncoder(w).Encode(map[string]any{
				"transfer": map[string]any{"hash": "landed-hash", "comment": "wd_landed", "amount": "10"},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{"transfer": nil})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	transfer, err := client.FindTransferByComment(context.Background(), "wd_landed")
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, "landed-hash", transfer.Hash)

	transfer, err = client.FindTransferByComment(context.Background(), "wd_lost")
	require.NoError(t, err)
	assert.Nil(t, transfer)
}

func TestClient_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testWallet)

	_, _, err := client.GetTransactions(context.Background(), "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
