package client

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

	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/common"
	"github.com/dmitrijs2005/taxbox/internal/netx"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// REST routes of the TaxBox API.
const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathRefresh  = "/auth/refresh"
	pathHealth   = "/health"
	pathReturns  = "/tax-returns"
	pathUpload   = "/documents/upload"

	uploadField = "file"
)

var errServer = errors.New("server error")

// HTTPClient talks to the REST API. Requests are rate limited on the way
// out and pass through a circuit breaker that trips on transport failures
// and 5xx responses.
type HTTPClient struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	tokens  tokenStore
	opts    options
}

func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{base: base, http: o.httpClient, opts: o}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if o.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.rateLimit), max(o.rateBurst, 1))
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "taxbox-api",
		Timeout: o.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return o.breakerFailures > 0 && counts.ConsecutiveFailures >= o.breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.log.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

type request struct {
	method string
	path   string
	auth   bool
	// body is called once per attempt.
	body func() (io.ReadCloser, string, error)
}

func jsonBody(v any) func() (io.ReadCloser, string, error) {
	return func() (io.ReadCloser, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return io.NopCloser(bytes.NewReader(b)), "application/json", nil
	}
}

func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var resp tokenResponse
	err := c.doJSON(ctx, request{method: http.MethodPost, path: pathLogin, body: jsonBody(loginRequest{Email: email, Password: password})}, &resp)
	if err != nil {
		return models.User{}, err
	}

	c.tokens.set(resp.AccessToken, resp.RefreshToken)
	if resp.User == nil {
		return models.User{Email: email}, nil
	}
	return *resp.User, nil
}

func (c *HTTPClient) CreateAccount(ctx context.Context, email, fullName, password string) error {
	return c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   pathRegister,
		body:   jsonBody(registerRequest{Email: email, FullName: fullName, Password: password}),
	}, nil)
}

// Logout forgets the tokens.
func (c *HTTPClient) Logout() {
	c.tokens.clear()
}

func (c *HTTPClient) FetchRecords(ctx context.Context) ([]models.TaxReturn, error) {
	var out []models.TaxReturn
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: pathReturns, auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadDocument streams doc as multipart field "file". progress receives
// the share of bytes handed to the connection; it never reaches 100 before
// the server answers.
func (c *HTTPClient) UploadDocument(ctx context.Context, doc models.Document, progress func(percent int)) error {
	if progress == nil {
		progress = func(int) {}
	}
	body := func() (io.ReadCloser, string, error) {
		content, err := doc.Open()
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", doc.Name, err)
		}
		r := netx.NewProgressReader(content, doc.Size, progress)
		pr, contentType := netx.MultipartBody(uploadField, doc.Name, doc.ContentType, r)
		return closeBoth{pr, content}, contentType, nil
	}
	return c.doJSON(ctx, request{method: http.MethodPost, path: pathUpload, auth: true, body: body}, nil)
}

func (c *HTTPClient) StreamsProgress() bool { return true }

func (c *HTTPClient) ExportRecord(ctx context.Context, id string) (models.Blob, error) {
	path := pathReturns + "/" + url.PathEscape(id) + "/export/json"
	resp, err := c.send(ctx, request{method: http.MethodGet, path: path, auth: true})
	if err != nil {
		return models.Blob{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Blob{}, fmt.Errorf("read export: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return models.Blob{Data: data, ContentType: ct}, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: pathHealth}, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, r request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// send performs r and returns a 2xx response or a sentinel error. An
// expired access token is refreshed once, before the call or after a 401.
func (c *HTTPClient) send(ctx context.Context, r request) (*http.Response, error) {
	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		// the caller reads the body after we return
		resp, err := c.sendWithRefresh(ctx, r)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = cancelOnClose{resp.Body, cancel}
		return resp, nil
	}
	return c.sendWithRefresh(ctx, r)
}

func (c *HTTPClient) sendWithRefresh(ctx context.Context, r request) (*http.Response, error) {
	if r.auth {
		if err := c.ensureFresh(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.attempt(ctx, r)
	if !r.auth || !errors.Is(err, common.ErrTokenExpired) {
		return resp, err
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	resp, err = c.attempt(ctx, r)
	if errors.Is(err, common.ErrTokenExpired) {
		return nil, ErrSessionExpired
	}
	return resp, err
}

// ensureFresh refreshes an access token whose exp has passed.
func (c *HTTPClient) ensureFresh(ctx context.Context) error {
	access, _ := c.tokens.get()
	if access == "" {
		return ErrUnauthorized
	}
	if !tokenExpired(access, c.opts.clock.Now()) {
		return nil
	}
	return c.refresh(ctx)
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	_, refresh := c.tokens.get()
	if refresh == "" || tokenExpired(refresh, c.opts.clock.Now()) {
		return ErrSessionExpired
	}

	resp, err := c.attempt(ctx, request{method: http.MethodPost, path: pathRefresh, body: jsonBody(refreshRequest{RefreshToken: refresh})})
	if err != nil {
		c.opts.log.Warn(ctx, "token refresh failed", "error", err)
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return ErrSessionExpired
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		return ErrSessionExpired
	}
	if tr.RefreshToken == "" {
		tr.RefreshToken = refresh
	}
	c.tokens.set(tr.AccessToken, tr.RefreshToken)
	return nil
}

// attempt sends r once through the limiter and the breaker.
func (c *HTTPClient) attempt(ctx context.Context, r request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(common.RequestIDHeaderName)

	sent := false
	res, err := c.breaker.Execute(func() (interface{}, error) {
		sent = true
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			drain(resp)
			return nil, fmt.Errorf("%w: %s", errServer, resp.Status)
		}
		return resp, nil
	})
	if !sent && req.Body != nil {
		// Do owns the body once called; an open breaker never gets there.
		_ = req.Body.Close()
	}
	if err != nil {
		c.opts.log.Debug(ctx, "request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return nil, transportError(err)
	}

	resp := res.(*http.Response)
	c.opts.log.Debug(ctx, "request done", "method", r.method, "path", r.path, "request_id", requestID, "status", resp.StatusCode)
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	return nil, statusError(resp)
}

func (c *HTTPClient) newRequest(ctx context.Context, r request) (*http.Request, error) {
	var (
		body        io.ReadCloser
		contentType string
	)
	if r.body != nil {
		var err error
		if body, contentType, err = r.body(); err != nil {
			return nil, err
		}
	}

	u := *c.base
	u.Path = c.base.Path + r.path
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		if body != nil {
			body.Close()
		}
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if r.auth {
		access, _ := c.tokens.get()
		req.Header.Set("Authorization", "Bearer "+access)
	}
	return req, nil
}

// transportError folds network failures, timeouts and an open breaker into
// ErrUnavailable.
func transportError(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// statusError maps a non-2xx, non-5xx response to a sentinel and closes it.
func statusError(resp *http.Response) error {
	defer drain(resp)

	var body errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		switch body.Detail {
		case common.ErrTokenExpired.Error():
			return common.ErrTokenExpired
		case common.ErrRefreshTokenExpired.Error():
			return fmt.Errorf("%w: %w", ErrSessionExpired, common.ErrRefreshTokenExpired)
		}
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %s: %s", resp.Status, body.Detail)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

type closeBoth struct {
	io.ReadCloser
	inner io.Closer
}

func (c closeBoth) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.inner.Close(); err == nil {
		err = cerr
	}
	return err
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
