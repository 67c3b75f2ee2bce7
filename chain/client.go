package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"lottopay/models"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

// Client talks to the external ledger through its HTTP gateway on behalf of
// the platform's signing wallet.
//
// All sends serialize on an internal mutex: the wallet's outgoing message
// counter must advance by exactly one per confirmed send, so two sends racing
// for the same sequence number would desynchronize it. Every call site that
// moves money (withdrawal handler, payout processor) must go through the same
// Client instance to share that boundary.
type Client struct {
	baseURL       string
	apiKey        string
	walletAddress string
	httpClient    *http.Client

	sendMu sync.Mutex

	// token wallet resolution is stable per signing wallet, cache it
	tokenWalletMu   sync.Mutex
	tokenWalletAddr string
}

// NewClient creates a new ledger gateway client for the given signing wallet
func NewClient(baseURL, apiKey, walletAddress string) *Client {
	return &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		walletAddress: walletAddress,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WalletAddress returns the platform wallet address deposits are sent to
func (c *Client) WalletAddress() string {
	return c.walletAddress
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// GetBalance returns the wallet's balance in the given currency
func (c *Client) GetBalance(ctx context.Context, currency models.Currency) (decimal.Decimal, error) {
	var resp balanceResponse
	path := fmt.Sprintf("/v1/accounts/%s/balance?currency=%s", c.walletAddress, currency)
	if err := c.get(ctx, path, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return resp.Balance, nil
}

type transactionsResponse struct {
	Transfers  []InboundTransfer `json:"transfers"`
	NextCursor string            `json:"next_cursor"`
}

// GetTransactions returns inbound transfers after the given cursor, oldest
// first, along with the cursor to resume from next time. An empty cursor
// starts from the beginning of the gateway's retention window.
func (c *Client) GetTransactions(ctx context.Context, cursor string, limit int) ([]InboundTransfer, string, error) {
	var resp transactionsResponse
	path := fmt.Sprintf("/v1/accounts/%s/transactions?after=%s&limit=%d",
		c.walletAddress, url.QueryEscape(cursor), limit)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, "", fmt.Errorf("failed to get transactions: %w", err)
	}
	next := resp.NextCursor
	if next == "" {
		next = cursor
	}
	return resp.Transfers, next, nil
}

type sendRequest struct {
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
	Comment string          `json:"comment,omitempty"`
	Payload *tokenPayload   `json:"payload,omitempty"`
}

// tokenPayload is the wrapped message directing the wallet's own token
// sub-account to move units to the recipient. The signing wallet's chain
// account is not itself the token holder.
type tokenPayload struct {
	Op          string          `json:"op"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Comment     string          `json:"comment,omitempty"`
}

type sendResponse struct {
	TxHash string `json:"tx_hash"`
}

// SendNative sends amount of the native coin to the given address and blocks
// until the gateway reports the definitive transaction hash or ctx expires.
// A timeout must be treated as failed for retry accounting; the transfer may
// still land, which is why reconciliation checks by comment before resending.
func (c *Client) SendNative(ctx context.Context, to string, amount decimal.Decimal, comment string) (string, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	req := sendRequest{To: to, Amount: amount, Comment: comment}
	return c.send(ctx, req)
}

// SendToken sends amount of the token to the given address, routed through
// the wallet's token sub-account.
func (c *Client) SendToken(ctx context.Context, to string, amount decimal.Decimal, comment string) (string, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	tokenWallet, err := c.resolveTokenWallet(ctx)
	if err != nil {
		return "", err
	}

	req := sendRequest{
		To: tokenWallet,
		// the outer message carries only the forwarding fee; the token amount
		// travels in the wrapped payload
		Amount: decimal.Zero,
		Payload: &tokenPayload{
			Op:          "transfer",
			Destination: to,
			Amount:      amount,
			Comment:     comment,
		},
	}
	return c.send(ctx, req)
}

// FindTransferByComment looks up an outgoing transfer by its attached
// comment. Used by crash reconciliation to decide whether a send whose
// outcome was lost actually moved money.
func (c *Client) FindTransferByComment(ctx context.Context, comment string) (*OutboundTransfer, error) {
	var resp struct {
		Transfer *OutboundTransfer `json:"transfer"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/transfers?comment=%s",
		c.walletAddress, url.QueryEscape(comment))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up transfer: %w", err)
	}
	return resp.Transfer, nil
}

func (c *Client) resolveTokenWallet(ctx context.Context) (string, error) {
	c.tokenWalletMu.Lock()
	defer c.tokenWalletMu.Unlock()

	if c.tokenWalletAddr != "" {
		return c.tokenWalletAddr, nil
	}

	var resp struct {
		Address string `json:"address"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/token-wallet", c.walletAddress)
	if err := c.get(ctx, path, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve token wallet: %w", err)
	}
	if resp.Address == "" {
		return "", fmt.Errorf("gateway returned empty token wallet address")
	}

	c.tokenWalletAddr = resp.Address
	return c.tokenWalletAddr, nil
}

func (c *Client) send(ctx context.Context, req sendRequest) (string, error) {
	var resp sendResponse
	path := fmt.Sprintf("/v1/accounts/%s/send", c.walletAddress)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return "", err
	}
	if resp.TxHash == "" {
		return "", fmt.Errorf("gateway accepted send but returned no transaction hash")
	}

	log.WithFields(log.Fields{
		"to":     req.To,
		"txHash": resp.TxHash,
	}).Debug("Chain send confirmed")

	return resp.TxHash, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(httpReq, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	return nil
}
