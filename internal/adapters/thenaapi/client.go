package thenaapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"thena/internal/adapters/observability"
	"thena/internal/domain"
)

// Client talks to the THENA backend. Authentication is a session cookie
// set by the magic-link verify endpoint; the jar carries it on every
// subsequent request.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second, Jar: jar},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Place search proxy ----

func (c *Client) Autocomplete(ctx context.Context, query string) ([]domain.Suggestion, error) {
	u := fmt.Sprintf("%s/api/google/autocomplete?q=%s", c.base, url.QueryEscape(query))
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "autocomplete", u, nil, &raw); err != nil {
		return nil, err
	}
	return decodeSuggestions(raw)
}

func (c *Client) PlaceDetails(ctx context.Context, placeID string) (map[string]any, error) {
	u := fmt.Sprintf("%s/api/google/place?place_id=%s", c.base, url.QueryEscape(placeID))
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "place_details", u, nil, &raw); err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// ---- Directory ----

// LookupByExternalID tries the known lookup route variants in order,
// moving on only for "not found"/"unprocessable" responses. Exhausting all
// of them yields ErrNotFound (confirmed absent); any other failure stops
// the chain and propagates.
func (c *Client) LookupByExternalID(ctx context.Context, externalID string) (*domain.Bundle, error) {
	esc := url.QueryEscape(externalID)
	candidates := []string{
		fmt.Sprintf("%s/establishments/by_google/%s", c.base, url.PathEscape(externalID)), // preferred
		fmt.Sprintf("%s/establishments/lookup?google_place_id=%s", c.base, esc),
		fmt.Sprintf("%s/establishments/find?google_place_id=%s", c.base, esc), // legacy
	}
	var raw json.RawMessage
	if err := c.getFirst(ctx, "lookup", candidates, &raw); err != nil {
		return nil, err
	}
	return decodeBundle(raw)
}

func (c *Client) GetEstablishment(ctx context.Context, id int64) (*domain.Bundle, error) {
	u := fmt.Sprintf("%s/establishments/%d", c.base, id)
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "get_establishment", u, nil, &raw); err != nil {
		return nil, err
	}
	return decodeBundle(raw)
}

func (c *Client) CreateEstablishment(ctx context.Context, p domain.Place) (*domain.Establishment, error) {
	payload := map[string]any{
		"google_place_id": p.ExternalID,
		"name":            p.Name,
		"address":         p.Address,
		"google_rating":   p.RatingExternal,
		"types":           p.Categories,
	}
	var est domain.Establishment
	u := fmt.Sprintf("%s/establishments", c.base)
	if err := c.do(ctx, http.MethodPost, "create_establishment", u, payload, &est); err != nil {
		return nil, err
	}
	return &est, nil
}

// ---- Reviews ----

func (c *Client) CreateReview(ctx context.Context, in domain.ReviewInput) (*domain.Review, error) {
	var rv domain.Review
	u := fmt.Sprintf("%s/reviews", c.base)
	if err := c.do(ctx, http.MethodPost, "create_review", u, in, &rv); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (c *Client) DeleteReview(ctx context.Context, id int64) error {
	u := fmt.Sprintf("%s/reviews/%d", c.base, id)
	return c.do(ctx, http.MethodDelete, "delete_review", u, nil, nil)
}

// ---- Auth ----

func (c *Client) Me(ctx context.Context) (*domain.Session, error) {
	var out struct {
		User *domain.Session `json:"user"`
	}
	u := fmt.Sprintf("%s/me", c.base)
	if err := c.do(ctx, http.MethodGet, "me", u, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, domain.ErrUnauthorized
	}
	return out.User, nil
}

func (c *Client) RequestMagicLink(ctx context.Context, email, displayName string) (string, error) {
	var out struct {
		OK      bool   `json:"ok"`
		DevLink string `json:"dev_link"`
	}
	u := fmt.Sprintf("%s/auth/magic-link", c.base)
	payload := map[string]string{"email": email, "pseudo": displayName}
	if err := c.do(ctx, http.MethodPost, "magic_link", u, payload, &out); err != nil {
		return "", err
	}
	return out.DevLink, nil
}

// VerifyMagicLink follows a magic link so the verify endpoint can set the
// session cookie on the client's jar. Accepts either a full link or a bare
// token.
func (c *Client) VerifyMagicLink(ctx context.Context, link string) error {
	u := link
	if !strings.Contains(link, "://") {
		u = fmt.Sprintf("%s/auth/verify?token=%s", c.base, url.QueryEscape(link))
	}
	return c.do(ctx, http.MethodGet, "verify", u, nil, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	u := fmt.Sprintf("%s/auth/logout", c.base)
	return c.do(ctx, http.MethodPost, "logout", u, map[string]any{}, nil)
}

// ---- Internals ----

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.do(ctx, http.MethodGet, endpoint, u, nil, out); err != nil {
			if domain.NotFoundish(err) {
				last = err
				continue // try next pattern
			}
			return err // non-404/422: stop early
		}
		return nil // success
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// do performs one call with client-side rate limiting, retries on 429 and
// transient 5xx (honoring Retry-After), and JSON decode into out.
// Error bodies carry a human-readable detail field which is surfaced
// verbatim.
func (c *Client) do(ctx context.Context, method, endpoint, u string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "thena-client/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveAPI(endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnprocessableEntity:
			// keep the sentinel for errors.Is, but carry the backend's
			// message for everything that is not a lookup probe
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: %s", domain.ErrUnprocessable, errorDetail(resp.StatusCode, b))

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return errors.New(errorDetail(resp.StatusCode, b))
		}
	}

	return lastErr
}

// errorDetail extracts the backend's human-readable message, falling back
// to the raw body.
func errorDetail(status int, body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return fmt.Sprintf("status %d: %s", status, s)
	}
	return fmt.Sprintf("status %d", status)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if
// absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms,
// 800ms...), with up to +50% random jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
