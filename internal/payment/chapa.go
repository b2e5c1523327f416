package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultChapaURL = "https://api.chapa.co/v1"

// Chapa talks to the Chapa hosted checkout API.
type Chapa struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewChapa builds the provider. A nil client gets an otel-instrumented default;
// per-call deadlines come from the caller's context.
func NewChapa(baseURL, secret string, client *http.Client) *Chapa {
	if baseURL == "" {
		baseURL = defaultChapaURL
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Chapa{baseURL: strings.TrimRight(baseURL, "/"), secret: secret, client: client}
}

func (c *Chapa) Name() string { return "chapa" }

type chapaCustomization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type chapaInitRequest struct {
	Amount        string             `json:"amount"`
	Currency      string             `json:"currency"`
	Email         string             `json:"email"`
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	TxRef         string             `json:"tx_ref"`
	CallbackURL   string             `json:"callback_url"`
	ReturnURL     string             `json:"return_url"`
	Customization chapaCustomization `json:"customization"`
}

type chapaEnvelope struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

func (c *Chapa) Initialize(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	body := chapaInitRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		TxRef:       req.TxRef,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Customization: chapaCustomization{
			Title:       req.Title,
			Description: req.Description,
		},
	}
	env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return Checkout{}, err
	}
	if env.Status != "success" {
		return Checkout{}, fmt.Errorf("%w: initialize status %q", ErrRejected, env.Status)
	}
	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return Checkout{}, fmt.Errorf("%w: missing checkout_url", ErrRejected)
	}
	return Checkout{Reference: req.TxRef, CheckoutURL: data.CheckoutURL}, nil
}

func (c *Chapa) Verify(ctx context.Context, reference string) (Verification, error) {
	env, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return Verification{}, err
	}
	v := Verification{Reference: reference, Status: env.Status}
	if env.Status != "success" {
		return v, nil
	}
	var data struct {
		Status string `json:"status"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil && data.Status != "" {
		v.Status = data.Status
	}
	v.Paid = v.Status == "success"
	return v, nil
}

// do sends one request. 4xx answers map to ErrRejected, everything else that
// fails maps to ErrGatewayUnavailable. Verify treats a 4xx body as "not paid"
// by reading the envelope status, so the body is decoded whenever possible.
func (c *Chapa) do(ctx context.Context, method, path string, payload any) (*chapaEnvelope, error) {
	var rd io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("chapa: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("chapa: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: chapa returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var env chapaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: chapa returned %d", ErrRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode body: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= 400 && method != http.MethodGet {
		return nil, fmt.Errorf("%w: chapa returned %d: %s", ErrRejected, resp.StatusCode, strings.Trim(string(env.Message), `"`))
	}
	return &env, nil
}
