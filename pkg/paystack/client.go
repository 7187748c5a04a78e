// Package paystack wraps the Paystack REST endpoints the platform depends on:
// account resolution, subaccount provisioning and transaction verification.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.paystack.co"
	defaultTimeout             = 30 * time.Second
	responseBodyReadLimit int64 = 4096
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client is a thin HTTP client over the Paystack API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Paystack base URL, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient builds a Paystack client from the secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(secretKey)
	if trimmed == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// envelope is the wrapper Paystack puts around every response.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ResolvedAccount is the outcome of a NUBAN account resolution.
type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankID        int64  `json:"bank_id"`
}

// ResolveAccount verifies that an account number exists at the given bank and
// returns the registered account name.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}

	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var out ResolvedAccount
	if err := c.do(ctx, http.MethodGet, "/bank/resolve?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubaccountRequest is the payload for subaccount creation.
type SubaccountRequest struct {
	BusinessName        string  `json:"business_name"`
	SettlementBank      string  `json:"settlement_bank"`
	AccountNumber       string  `json:"account_number"`
	PercentageCharge    float64 `json:"percentage_charge"`
	Description         string  `json:"description,omitempty"`
	PrimaryContactEmail string  `json:"primary_contact_email,omitempty"`
}

// Subaccount is the provider-side split destination created for a seller.
type Subaccount struct {
	ID             int64  `json:"id"`
	SubaccountCode string `json:"subaccount_code"`
	BusinessName   string `json:"business_name"`
	SettlementBank string `json:"settlement_bank"`
	AccountNumber  string `json:"account_number"`
	Active         bool   `json:"active"`
}

// CreateSubaccount registers a settlement subaccount for a seller.
func (c *Client) CreateSubaccount(ctx context.Context, req SubaccountRequest) (*Subaccount, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.BusinessName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name is required")
	}
	if strings.TrimSpace(req.SettlementBank) == "" || strings.TrimSpace(req.AccountNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement bank and account number are required")
	}

	var out Subaccount
	if err := c.do(ctx, http.MethodPost, "/subaccount", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitializeRequest is the payload for transaction initialization.
type InitializeRequest struct {
	Email       string   `json:"email"`
	AmountKobo  int64    `json:"amount"`
	Reference   string   `json:"reference,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Channels    []string `json:"channels,omitempty"`
}

// InitializedTransaction carries the hosted checkout handle for a new charge.
type InitializedTransaction struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializeTransaction opens a charge on Paystack and returns the hosted
// payment URL the buyer is redirected to.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializedTransaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if req.AmountKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var out InitializedTransaction
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transaction is the verification result for a charge reference.
type Transaction struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	AmountKobo int64  `json:"amount"`
	Currency   string `json:"currency"`
	PaidAt     string `json:"paid_at"`
	Channel    string `json:"channel"`
	Customer   struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Succeeded reports whether the charge completed.
func (t Transaction) Succeeded() bool {
	return strings.EqualFold(t.Status, "success")
}

// VerifyTransaction fetches the authoritative state of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	var out Transaction
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(trimmed), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes a request against the Paystack API and decodes the enveloped
// response into out. A 4xx with status=false maps to CodeProviderRejected so
// callers can distinguish provider refusals from transport failures.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal paystack request")
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build paystack request")
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute paystack request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}

	var env envelope
	if decodeErr := json.Unmarshal(raw, &env); decodeErr != nil && resp.StatusCode < 500 {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode paystack response")
	}

	switch {
	case resp.StatusCode >= 500:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack unavailable: status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return pkgerrors.New(pkgerrors.CodeProviderRejected, msg)
	case !env.Status:
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = "request declined"
		}
		return pkgerrors.New(pkgerrors.CodeProviderRejected, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack payload")
	}
	return nil
}
