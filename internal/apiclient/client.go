// Package apiclient talks to the remote SparkPro API. Every call except
// Login carries the caller's bearer credential; nothing is retried.
package apiclient

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

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"sparkpro/desk/internal/accounts"
	"sparkpro/desk/internal/domain"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnavailable       = errors.New("sparkpro api unavailable")
	ErrMalformedResponse = errors.New("malformed api response")
)

const maxResponseBytes = 4 << 20

// Credential supplies the bearer token for a call.
type Credential interface {
	Bearer() string
}

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sparkpro api returned %d", e.Status)
	}
	return fmt.Sprintf("sparkpro api returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// callerGone marks a call abandoned by its own context. The breaker does not
// count it as an upstream failure.
type callerGone struct {
	err error
}

func (e callerGone) Error() string { return e.err.Error() }

func (e callerGone) Unwrap() error { return e.err }

type rawResponse struct {
	status int
	body   []byte
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*rawResponse]
	limiter *rate.Limiter
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewWithHTTPClient(baseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	breaker := gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        "sparkpro-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var gone callerGone
			return err == nil || errors.As(err, &gone)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		breaker: breaker,
	}
}

// SetRateLimit caps outbound calls per second. A non-positive rate removes
// the cap.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	res, err := c.do(ctx, nil, http.MethodPost, "/auth/login", req)
	if err != nil {
		return "", err
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(res, &body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: login response has no token", ErrMalformedResponse)
	}
	return body.Token, nil
}

func (c *Client) ActiveProducts(ctx context.Context, cred Credential) ([]domain.Product, error) {
	res, err := c.do(ctx, cred, http.MethodGet, "/product/active", nil)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0)
	if err := decodeBody(res, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ActiveGiftBoxes(ctx context.Context, cred Credential) ([]domain.GiftBox, error) {
	res, err := c.do(ctx, cred, http.MethodGet, "/giftbox/active", nil)
	if err != nil {
		return nil, err
	}
	boxes := make([]domain.GiftBox, 0)
	if err := decodeBody(res, &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}

// PendingCart returns nil without error when no draft exists. Any 2xx with
// an empty body (204 in practice) means "no draft".
func (c *Client) PendingCart(ctx context.Context, cred Credential, customerID string) (*domain.PendingCart, error) {
	res, err := c.do(ctx, cred, http.MethodGet, "/cart/pending/"+url.PathEscape(customerID), nil)
	if err != nil {
		return nil, err
	}
	if isEmptyBody(res) {
		return nil, nil
	}
	var pending domain.PendingCart
	if err := decodeBody(res, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (c *Client) SaveCart(ctx context.Context, cred Credential, payload domain.OrderPayload) error {
	_, err := c.do(ctx, cred, http.MethodPost, "/cart/save", payload)
	return err
}

func (c *Client) PlaceOrder(ctx context.Context, cred Credential, payload domain.OrderPayload) (domain.OrderResult, error) {
	res, err := c.do(ctx, cred, http.MethodPost, "/order/place-order", payload)
	if err != nil {
		return domain.OrderResult{}, err
	}
	var result domain.OrderResult
	if err := decodeBody(res, &result); err != nil {
		return domain.OrderResult{}, err
	}
	if result.InvoiceReference == "" {
		return domain.OrderResult{}, fmt.Errorf("%w: order response has no invoice reference", ErrMalformedResponse)
	}
	return result, nil
}

func (c *Client) GiftBoxes(ctx context.Context, cred Credential) ([]domain.GiftBox, error) {
	res, err := c.do(ctx, cred, http.MethodGet, "/giftbox", nil)
	if err != nil {
		return nil, err
	}
	boxes := make([]domain.GiftBox, 0)
	if err := decodeBody(res, &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}

func (c *Client) CreateGiftBox(ctx context.Context, cred Credential, req domain.GiftBoxRequest) (domain.GiftBox, error) {
	res, err := c.do(ctx, cred, http.MethodPost, "/giftbox", req)
	if err != nil {
		return domain.GiftBox{}, err
	}
	var box domain.GiftBox
	err = decodeBody(res, &box)
	return box, err
}

func (c *Client) UpdateGiftBox(ctx context.Context, cred Credential, id string, req domain.GiftBoxRequest) (domain.GiftBox, error) {
	res, err := c.do(ctx, cred, http.MethodPut, "/giftbox/"+url.PathEscape(id), req)
	if err != nil {
		return domain.GiftBox{}, err
	}
	var box domain.GiftBox
	err = decodeBody(res, &box)
	return box, err
}

func (c *Client) SubAdmins(ctx context.Context, cred Credential) ([]accounts.SubAdmin, error) {
	res, err := c.do(ctx, cred, http.MethodGet, "/subadmin", nil)
	if err != nil {
		return nil, err
	}
	admins := make([]accounts.SubAdmin, 0)
	if err := decodeBody(res, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

func (c *Client) CreateSubAdmin(ctx context.Context, cred Credential, form accounts.SubAdminForm) (accounts.SubAdmin, error) {
	res, err := c.do(ctx, cred, http.MethodPost, "/subadmin", form)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	var admin accounts.SubAdmin
	err = decodeBody(res, &admin)
	return admin, err
}

func (c *Client) UpdateSubAdmin(ctx context.Context, cred Credential, id string, form accounts.SubAdminForm) (accounts.SubAdmin, error) {
	res, err := c.do(ctx, cred, http.MethodPut, "/subadmin/"+url.PathEscape(id), form)
	if err != nil {
		return accounts.SubAdmin{}, err
	}
	var admin accounts.SubAdmin
	err = decodeBody(res, &admin)
	return admin, err
}

func (c *Client) do(ctx context.Context, cred Credential, method string, path string, body any) (*rawResponse, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = encoded
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	res, err := c.breaker.Execute(func() (*rawResponse, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if cred != nil {
			req.Header.Set("Authorization", "Bearer "+cred.Bearer())
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, callerGone{err: err}
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		raw := &rawResponse{status: resp.StatusCode, body: data}
		// Only upstream faults count against the breaker; 4xx is a caller problem.
		if resp.StatusCode >= 500 {
			return raw, statusError(raw)
		}
		return raw, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if res.status < 200 || res.status > 299 {
		return nil, fmt.Errorf("%s %s: %w", method, path, statusError(res))
	}
	return res, nil
}

func statusError(res *rawResponse) *StatusError {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(res.body, &body) == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	return &StatusError{Status: res.status, Message: msg}
}

func isEmptyBody(res *rawResponse) bool {
	trimmed := bytes.TrimSpace(res.body)
	return res.status == http.StatusNoContent || len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeBody(res *rawResponse, dest any) error {
	if len(bytes.TrimSpace(res.body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal(res.body, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
