package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/i2-open/i2goScimBulk/pkg/goScim/operations"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/resource"
)

var clientLog = log.New(os.Stdout, "SCIM: ", log.Ldate|log.Ltime)

const DefaultHost = "webexapis.com"

type Config struct {
	OrgId string
	Token string

	// Host of the directory; the base endpoint is https://<Host>/identity/scim/<OrgId>/v2.
	Host string
	// BaseUrl replaces the derived base endpoint entirely when set.
	BaseUrl string

	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             RetryPolicy

	HttpClient *http.Client
	Logger     *log.Logger
	Stats      *Stats
}

// Client is a SCIM 2.0 client bound to one organization. Its configuration is fixed at
// construction and it is safe to share read-only.
type Client struct {
	baseUrl string
	headers http.Header
	http    *http.Client
	retry   RetryPolicy
	limiter *rate.Limiter
	log     *log.Logger
	stats   *Stats
	now     func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.OrgId) == "" {
		return nil, &ConfigurationError{Field: "organization id"}
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, &ConfigurationError{Field: "bearer token"}
	}

	baseUrl := strings.TrimRight(cfg.BaseUrl, "/")
	if baseUrl == "" {
		host := cfg.Host
		if host == "" {
			host = DefaultHost
		}
		baseUrl = fmt.Sprintf("https://%s/identity/scim/%s/v2", host, url.PathEscape(cfg.OrgId))
	}

	httpClient := cfg.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.Token)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")

	c := &Client{
		baseUrl: baseUrl,
		headers: headers,
		http:    httpClient,
		retry:   cfg.Retry.normalized(),
		log:     cfg.Logger,
		stats:   cfg.Stats,
		now:     time.Now,
	}
	if c.log == nil {
		c.log = clientLog
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

func (c *Client) BaseUrl() string {
	return c.baseUrl
}

// LookupByUsername searches /Users with the given SCIM filter expression. The filter is
// sent as-is (query encoded only); malformed filters come back as an HttpError.
func (c *Client) LookupByUsername(ctx context.Context, filter string) (*resource.ListResponse, error) {
	endpoint := "/Users?" + url.Values{"filter": []string{filter}}.Encode()
	var list resource.ListResponse
	found, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &list)
	if err != nil {
		return nil, err
	}
	if !found {
		return &resource.ListResponse{}, nil
	}
	return &list, nil
}

// RemoveEmail patches the user, removing the email entry equal to email. A 204 returns
// (nil, nil); any other 2xx returns the resource the directory sent back.
func (c *Client) RemoveEmail(ctx context.Context, userId string, email string) (*resource.ScimResource, error) {
	patch := operations.NewRemoveEmailRequest(email)
	var user resource.ScimResource
	found, err := c.doRequest(ctx, http.MethodPatch, "/Users/"+url.PathEscape(userId), patch, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// doRequest sends one logical request, retrying on 429 per the retry policy. It returns
// true when a response body was decoded into out.
func (c *Client) doRequest(ctx context.Context, method string, endpoint string, payload any, out any) (bool, error) {
	requestUrl := c.baseUrl + endpoint

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return false, fmt.Errorf("scim %s %s: encoding request: %w", method, requestUrl, err)
		}
	}

	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return false, &TransportError{Method: method, URL: requestUrl, Err: err}
			}
		}

		status, header, respBody, err := c.send(ctx, method, requestUrl, body)
		if err != nil {
			c.log.Printf("Request failed: %s %s: %s", method, requestUrl, err.Error())
			return false, &TransportError{Method: method, URL: requestUrl, Err: err}
		}

		switch {
		case status == http.StatusTooManyRequests:
			c.rateLimited()
			if c.retry.exhausted(attempt) {
				return false, &RateLimitExhaustedError{Method: method, URL: requestUrl, Attempts: attempt}
			}
			delay := c.retry.Delay(header, c.now())
			c.log.Printf("Rate limit hit on %s %s. Waiting %v before retry %d.", method, endpoint, delay, attempt)
			if err := c.retry.Sleep(ctx, delay); err != nil {
				return false, &TransportError{Method: method, URL: requestUrl, Err: err}
			}
			c.waited(delay)
			continue

		case status < 200 || status > 299:
			herr := newHttpError(method, requestUrl, status, respBody)
			c.log.Printf("HTTP Error: %d - %s", status, snippet(respBody, 500))
			return false, herr

		case status == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 || out == nil:
			return false, nil
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return false, fmt.Errorf("scim %s %s: decoding response: %w", method, requestUrl, err)
		}
		return true, nil
	}
}

func (c *Client) send(ctx context.Context, method string, requestUrl string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestUrl, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	c.observe(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

func (c *Client) observe(method string, status int, elapsed time.Duration) {
	if c.stats == nil {
		return
	}
	c.stats.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.stats.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Client) rateLimited() {
	if c.stats != nil {
		c.stats.RateLimited.Inc()
	}
}

func (c *Client) waited(d time.Duration) {
	if c.stats != nil {
		c.stats.RetryWait.Add(d.Seconds())
	}
}

// ErrorKind names the class of a client error: "http", "transport", "rate_limit" or "other".
func ErrorKind(err error) string {
	var herr *HttpError
	var terr *TransportError
	var rerr *RateLimitExhaustedError
	switch {
	case errors.As(err, &herr):
		return "http"
	case errors.As(err, &rerr):
		return "rate_limit"
	case errors.As(err, &terr):
		return "transport"
	}
	return "other"
}
