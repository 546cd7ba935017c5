package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/session"
)

// exact user-facing notification texts
const (
	titleConnectionError = "Connection Error"
	msgConnectionError   = "Unable to connect to the server. Please check your connection."
	titleAccessDenied    = "Access Denied"
	msgAccessDenied      = "You do not have permission to perform this action."
	titleValidationError = "Validation Error"
	msgValidationError   = "Validation error occurred."
	titleServerError     = "Server Error"
	msgServerError       = "An unexpected error occurred. Please try again later."
	titleSessionExpired  = "Session Expired"
	msgSessionExpired    = "Your session has expired. Please log in again."
)

type (
	Options struct {
		BaseURL string
		Timeout time.Duration
		Session *session.Session
		Notify  core.Notifier
		Logger  core.Logger

		// Location reports the dashboard's current route, persisted for a
		// post-login redirect on forced logout. Optional.
		Location func() string
		// OnLogout is invoked after the session is forcibly cleared. Optional.
		OnLogout func()
		// HTTPClient overrides the underlying transport (tests). Optional.
		HTTPClient *http.Client
	}

	// Client is the resilient HTTP client behind every dashboard request:
	// it intercepts authentication failures, performs a deduplicated session
	// refresh and retries, and maps error statuses to user notifications.
	Client struct {
		base     *url.URL
		http     *http.Client
		session  *session.Session
		notifier core.Notifier
		logger   core.Logger
		location func() string
		onLogout func()

		// refreshing collapses concurrent refresh attempts into one flight;
		// every 401 caller shares its outcome and retries with the new token.
		refreshing singleflight.Group
	}
)

func NewClient(opts *Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base URL %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:     base,
		http:     httpClient,
		session:  opts.Session,
		notifier: opts.Notify,
		logger:   opts.Logger,
		location: opts.Location,
		onLogout: opts.OnLogout,
	}, nil
}

// request is one resend-able API call: the body is kept as bytes so the call
// can be replayed after a session refresh, re-reporting progress if any.
type request struct {
	method      string
	path        string
	contentType string
	body        []byte
	onProgress  func(pct int)
}

// isAuthPath exempts the login and refresh endpoints from the 401 interception
// rule; a 401 from these must never trigger another refresh.
func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/refresh")
}

// do runs one request through the resilience pipeline: transport failures
// notify and map to a status-0 APIError; a 401 outside the auth endpoints
// triggers the single-flight refresh and one retry; all other error statuses
// notify per policy and propagate. The happy path passes through unmodified.
func (c *Client) do(ctx context.Context, req request) (*http.Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		c.notifier.Notify(core.NotifyError, titleConnectionError, msgConnectionError)
		return nil, errors.Wrap(&core.APIError{Status: 0, Message: err.Error()}, "sending request")
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(req.path) {
		drain(resp)
		if err := c.refreshSession(ctx); err != nil {
			// the refresh failure, not the original 401, goes to the caller
			return nil, err
		}
		if resp, err = c.send(ctx, req); err != nil {
			c.notifier.Notify(core.NotifyError, titleConnectionError, msgConnectionError)
			return nil, errors.Wrap(&core.APIError{Status: 0, Message: err.Error()}, "resending request")
		}
	}

	return c.intercept(resp)
}

// intercept maps an error response to its notification per status and always
// propagates the decoded APIError; 2xx responses pass through.
func (c *Client) intercept(resp *http.Response) (*http.Response, error) {
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}

	apiErr := decodeAPIError(resp)
	switch resp.StatusCode {
	case http.StatusForbidden:
		c.notifier.Notify(core.NotifyError, titleAccessDenied, msgAccessDenied)
	case http.StatusNotFound:
		// left to callers
	case http.StatusUnprocessableEntity:
		msg := apiErr.Detail
		if msg == "" {
			msg = msgValidationError
		}
		c.notifier.Notify(core.NotifyError, titleValidationError, msg)
	case http.StatusInternalServerError:
		c.notifier.Notify(core.NotifyError, titleServerError, msgServerError)
	}
	return nil, apiErr
}

// refreshSession performs the single-flight token refresh. Concurrent callers
// share one refreshToken() call; on failure the expiry episode is closed with
// at most one notification and a forced logout.
func (c *Client) refreshSession(ctx context.Context) error {
	_, err, _ := c.refreshing.Do("refresh", func() (interface{}, error) {
		if err := c.refreshToken(ctx); err != nil {
			c.forceLogout()
			return nil, &core.RefreshFailedError{Err: err}
		}
		c.session.ResetExpiredNotified()
		return nil, nil
	})
	return err
}

// forceLogout ends the session: one "Session Expired" notification per
// episode, the pre-expiry location persisted for a post-login redirect, the
// auth state cleared and the logout hook invoked.
func (c *Client) forceLogout() {
	if c.session.MarkExpiredNotified() {
		c.notifier.Notify(core.NotifyWarning, titleSessionExpired, msgSessionExpired)
	}
	if c.location != nil {
		c.session.SetReturnTo(c.location())
	}
	c.session.Clear()
	if c.onLogout != nil {
		c.onLogout()
	}
}

// send builds and executes one HTTP attempt; each attempt re-reads the current
// access token so a retry after refresh observes the new one.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
		if r.onProgress != nil {
			body = &progressReader{r: body, total: int64(len(r.body)), onProgress: r.onProgress}
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.base.String()+r.path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if tok := c.session.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return c.http.Do(req)
}

// doJSON runs a JSON request through the pipeline and decodes the response
// body into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var req request
	req.method = method
	req.path = path
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.body = body
		req.contentType = "application/json"
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response body")
	}
	return nil
}

// decodeAPIError decodes a failure body into an APIError; an undecodable or
// empty body still yields the status code.
func decodeAPIError(resp *http.Response) *core.APIError {
	defer drain(resp)
	apiErr := &core.APIError{Status: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(apiErr)
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
