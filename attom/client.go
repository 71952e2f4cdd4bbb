package attom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrDailyLimitExceeded is returned once the gateway reports the account quota
// is used up. Callers should stop issuing requests until the next day.
var ErrDailyLimitExceeded = errors.New("attom: daily request limit exceeded")

const defaultBaseURL = "https://api.gateway.attomdata.com"

type Options struct {
	BaseURL  string
	RPS      float64 // <= 0 disables client-side pacing
	RetryMax int     // < 0 disables retries, 0 means the default of 3
	Timeout  time.Duration
}

type Client struct {
	key     string
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

func NewClient(apiKey string, opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	switch {
	case opts.RetryMax < 0:
		rc.RetryMax = 0
	case opts.RetryMax == 0:
		rc.RetryMax = 3
	default:
		rc.RetryMax = opts.RetryMax
	}
	rc.HTTPClient.Timeout = 6 * time.Second
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	rc.CheckRetry = checkRetry
	// keep the last response so quota errors can be told apart from outages
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Client{
		key:     apiKey,
		baseURL: base,
		http:    rc,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// A 429 from the gateway means quota, not transient load.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// SalesByPostal returns one page of the sale snapshot for a ZIP code.
// Docs: GET /propertyapi/v1.0.0/sale/snapshot
func (c *Client) SalesByPostal(ctx context.Context, postal string, page, pageSize int) ([]byte, error) {
	if strings.TrimSpace(postal) == "" {
		return nil, errors.New("attom: postal code required")
	}
	q := url.Values{}
	q.Set("postalcode", postal)
	if page <= 0 {
		page = 1
	}
	q.Set("page", fmt.Sprintf("%d", page))
	if pageSize > 0 {
		q.Set("pagesize", fmt.Sprintf("%d", pageSize))
	}
	q.Set("orderby", "saleTransDate desc")
	return c.get(ctx, "/propertyapi/v1.0.0/sale/snapshot", q)
}

// SalesTrend returns monthly sale statistics for a ZIP code.
// Docs: GET /propertyapi/v1.0.0/salestrend/snapshot
func (c *Client) SalesTrend(ctx context.Context, postal string) ([]byte, error) {
	if strings.TrimSpace(postal) == "" {
		return nil, errors.New("attom: postal code required")
	}
	q := url.Values{}
	q.Set("geoid", "ZI"+postal)
	q.Set("interval", "monthly")
	return c.get(ctx, "/propertyapi/v1.0.0/salestrend/snapshot", q)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("apikey", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var body map[string]any
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		if quotaExceeded(resp.StatusCode, body) {
			return nil, ErrDailyLimitExceeded
		}
		return nil, fmt.Errorf("attom error %d: %v", resp.StatusCode, body)
	}
	return ioReadAllLimit(resp.Body, 4<<20) // 4MB guard
}

func quotaExceeded(status int, body map[string]any) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status != http.StatusForbidden && status != http.StatusUnauthorized {
		return false
	}
	msg := strings.ToLower(fmt.Sprint(body))
	return strings.Contains(msg, "limit") || strings.Contains(msg, "quota")
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
