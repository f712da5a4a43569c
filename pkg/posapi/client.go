package posapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pdvlabs/balcao/pkg/config"
	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("backend base URL is required")
	errLoggerRequired  = errors.New("posapi logger is required")
)

// Client exposes the POS backend's REST surface with centralized auth,
// logging, idempotency, and error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	terminalID  string
	maxRetries  uint64
	retryDelay  retryDelay
	logger      *logger.Logger
}

type retryDelay struct {
	base retry.Backoff
}

// NewClient initializes the backend client and validates its configuration.
func NewClient(ctx context.Context, cfg config.BackendConfig, terminalID string, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	attempts := cfg.RetryMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     baseURL,
		accessToken: strings.TrimSpace(cfg.AccessToken),
		terminalID:  strings.TrimSpace(terminalID),
		maxRetries:  uint64(attempts - 1),
		retryDelay:  retryDelay{base: retry.NewExponential(cfg.RetryBaseDelay)},
		logger:      logg,
	}

	logg.Info(ctx, "pos backend client initialized")
	return c, nil
}

// NewIdempotencyKey returns a unique key for mutating backend calls.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "pos"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

type request struct {
	method string
	path   string
	query  map[string]string
	body   any

	// idempotent marks safe-to-retry reads; mutations are never replayed
	// without an explicit idempotency key.
	idempotent     bool
	idempotencyKey string
	// expectedVersion travels as If-Match when > 0 so the backend can
	// reject writes against a stale order snapshot.
	expectedVersion int64
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	op := fmt.Sprintf("%s %s", req.method, req.path)
	c.log(ctx, "request", op, map[string]any{"query": req.query})

	call := func(ctx context.Context) error {
		err := c.doOnce(ctx, req, out)
		if err != nil && req.idempotent && pkgerrors.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	}

	var err error
	if req.idempotent && c.maxRetries > 0 {
		err = retry.Do(ctx, retry.WithMaxRetries(c.maxRetries, c.retryDelay.base), call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return err
	}

	c.log(ctx, "response", op, nil)
	return nil
}

func (c *Client) doOnce(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.terminalID != "" {
		httpReq.Header.Set("X-Terminal-ID", c.terminalID)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}
	if req.expectedVersion > 0 {
		httpReq.Header.Set("If-Match", strconv.FormatInt(req.expectedVersion, 10))
	}
	if len(req.query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pos backend unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response body")
	}

	if resp.StatusCode >= 400 {
		return c.mapAPIError(resp.StatusCode, payload, req.path)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 || string(bytes.TrimSpace(payload)) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response body")
	}
	return nil
}

// mapAPIError converts an HTTP failure into the domain taxonomy, keeping
// the backend's detail message verbatim when one is present.
func (c *Client) mapAPIError(status int, payload []byte, path string) error {
	detail := ""
	var parsed errorPayload
	if err := json.Unmarshal(payload, &parsed); err == nil {
		detail = strings.TrimSpace(parsed.Detail)
	}

	code := domainCodeForStatus(status)
	message := detail
	if message == "" {
		message = fmt.Sprintf("pos backend rejected %s (status %d)", path, status)
	}
	return pkgerrors.New(code, message).WithDetails(map[string]any{"status": status})
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("posapi %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("posapi %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "password"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
