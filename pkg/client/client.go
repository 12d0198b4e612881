// Package client provides the authenticated WHOOP API session: a one-time
// password grant followed by bearer-token requests against the developer API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for WHOOP API operations.
var (
	whoopRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whoop_requests_total",
		Help: "Total WHOOP API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	whoopRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "whoop_request_duration_seconds",
		Help:    "WHOOP API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	whoopErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whoop_errors_total",
		Help: "Total WHOOP API errors by class",
	}, []string{"class"})

	whoopAuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whoop_auth_attempts_total",
		Help: "Total password grant attempts by result",
	}, []string{"result"})
)

// Default WHOOP endpoints.
const (
	DefaultTokenURL = "https://api-7.whoop.com/oauth/token"
	DefaultBaseURL  = "https://api.prod.whoop.com/developer"
)

// BodyEncoding selects how the password grant parameters are sent.
type BodyEncoding string

const (
	// BodyEncodingJSON sends the grant as a JSON object. The WHOOP token
	// endpoint only accepts this form.
	BodyEncodingJSON BodyEncoding = "json"

	// BodyEncodingForm sends the grant as application/x-www-form-urlencoded.
	BodyEncodingForm BodyEncoding = "form"
)

// ErrorClass represents a classification of API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 401/403.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassAuth represents 401/403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents non-2xx statuses outside 4xx/5xx.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// maxErrorBody bounds how much of a failed response body is kept on errors.
const maxErrorBody = 512

// Credential is the bearer token obtained by the password grant.
// It is never refreshed.
type Credential struct {
	AccessToken string
	TokenType   string
	UserID      string
	// ExpiresAt is zero when the token endpoint does not report expires_in.
	ExpiresAt time.Time
}

// Config holds the client configuration.
type Config struct {
	// TokenURL is the password grant endpoint.
	TokenURL string

	// BaseURL is prefixed to every request path suffix.
	BaseURL string

	// BodyEncoding of the token request (default json).
	BodyEncoding BodyEncoding

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for each HTTP round trip.
	Timeout time.Duration

	// HTTPClient overrides the default transport (tests, proxies).
	HTTPClient *http.Client
}

// DefaultConfig returns the configuration for the production WHOOP API.
func DefaultConfig() Config {
	return Config{
		TokenURL:     DefaultTokenURL,
		BaseURL:      DefaultBaseURL,
		BodyEncoding: BodyEncodingJSON,
		UserAgent:    "whoop-recovery/0.1.0",
		Timeout:      30 * time.Second,
	}
}

// Client is an authenticated WHOOP API session.
type Client struct {
	httpClient *http.Client
	config     Config
	credential *Credential
	logger     zerolog.Logger
}

// New creates a client. It does not contact the API; call Authenticate
// (or use Login) before issuing requests.
func New(cfg Config) (*Client, error) {
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token url is required")
	}
	if _, err := url.ParseRequestURI(cfg.TokenURL); err != nil {
		return nil, fmt.Errorf("invalid token url: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	switch cfg.BodyEncoding {
	case "":
		cfg.BodyEncoding = BodyEncodingJSON
	case BodyEncodingJSON, BodyEncodingForm:
	default:
		return nil, fmt.Errorf("unsupported body encoding %q", cfg.BodyEncoding)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     log.With().Str("component", "whoop-client").Logger(),
	}, nil
}

// Login creates a client and performs the password grant.
func Login(ctx context.Context, cfg Config, username, password string) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := c.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}
	return c, nil
}

// tokenResponse is the subset of the token endpoint response we use.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID json.RawMessage `json:"id"`
	} `json:"user"`
}

// Authenticate exchanges username and password for a bearer token and stores
// it on the client.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Credential, error) {
	if username == "" || password == "" {
		whoopAuthAttemptsTotal.WithLabelValues("rejected").Inc()
		return nil, &AuthError{Message: "username and password are required"}
	}

	params := map[string]string{
		"username":   username,
		"password":   password,
		"grant_type": "password",
	}

	body, contentType, err := encodeGrant(params, c.config.BodyEncoding)
	if err != nil {
		return nil, &AuthError{Message: "encode token request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Message: "create token request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("token_url", c.config.TokenURL).
		Str("encoding", string(c.config.BodyEncoding)).
		Msg("Requesting access token")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		whoopAuthAttemptsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Msg("Token request failed")
		return nil, &AuthError{Message: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		whoopAuthAttemptsTotal.WithLabelValues("network_error").Inc()
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "read token response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		whoopAuthAttemptsTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Credentials rejected")
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(resp.Status + " " + truncate(data, maxErrorBody)),
		}
	}

	var token tokenResponse
	if err := json.Unmarshal(data, &token); err != nil {
		whoopAuthAttemptsTotal.WithLabelValues("malformed").Inc()
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "decode token response", Err: err}
	}
	if token.AccessToken == "" {
		whoopAuthAttemptsTotal.WithLabelValues("malformed").Inc()
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "decode token response", Err: ErrMissingAccessToken}
	}

	cred := &Credential{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		UserID:      rawID(token.User.ID),
	}
	if token.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	c.credential = cred
	c.logger = c.logger.With().Str("user_id", cred.UserID).Logger()
	whoopAuthAttemptsTotal.WithLabelValues("success").Inc()

	c.logger.Info().Msg("Authenticated")
	return cred, nil
}

// encodeGrant renders the grant parameters for the configured encoding.
func encodeGrant(params map[string]string, encoding BodyEncoding) ([]byte, string, error) {
	if encoding == BodyEncodingForm {
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// rawID renders user.id whether the server sent it as a number or a string.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// Credential returns the credential obtained by Authenticate, or nil.
func (c *Client) Credential() *Credential {
	return c.credential
}

// UserID returns the WHOOP user id derived at login.
func (c *Client) UserID() string {
	if c.credential == nil {
		return ""
	}
	return c.credential.UserID
}

// Request performs one authenticated call to {BaseURL}/{pathSuffix} and
// returns the raw JSON body. A non-nil body is sent as JSON.
// There is no retry. Apart from ErrNotAuthenticated every failure, including
// a request that cannot be built, is returned as *HTTPError.
func (c *Client) Request(ctx context.Context, method, pathSuffix string, query url.Values, body any) (json.RawMessage, error) {
	if c.credential == nil {
		return nil, ErrNotAuthenticated
	}

	endpoint := "/" + strings.TrimLeft(pathSuffix, "/")
	base := strings.TrimRight(c.config.BaseURL, "/") + endpoint
	target := base
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	buildError := func(err error) error {
		whoopErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &HTTPError{Method: method, URL: base, ErrorClass: ErrorClassNetwork, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, buildError(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, buildError(fmt.Errorf("create request: %w", err))
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.credential.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	defer func() {
		whoopRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Str("request_id", requestID).
		Msg("Executing WHOOP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		whoopErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		whoopRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Str("request_id", requestID).Msg("HTTP request failed")
		return nil, &HTTPError{
			Method:     method,
			URL:        redactedURL(req.URL),
			ErrorClass: ErrorClassNetwork,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	whoopRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		whoopErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &HTTPError{
			Method:     method,
			URL:        redactedURL(req.URL),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			ErrorClass: ErrorClassNetwork,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		whoopErrorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Str("request_id", requestID).
			Msg("WHOOP request error")

		return nil, &HTTPError{
			Method:     method,
			URL:        redactedURL(req.URL),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			ErrorClass: class,
			Body:       truncate(data, maxErrorBody),
		}
	}

	return json.RawMessage(data), nil
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, pathSuffix string, query url.Values) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, pathSuffix, query, nil)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// redactedURL drops the query string; cursors and date bounds are noise in
// error messages.
func redactedURL(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}

// truncate trims data to at most n bytes without splitting a UTF-8 sequence.
func truncate(data []byte, n int) string {
	s := strings.TrimSpace(string(data))
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
