package lowlevel

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/h44z/vote-portal/internal"
	"github.com/h44z/vote-portal/internal/config"
)

const (
	ApiStatusOk    = "success"
	ApiStatusError = "error"
)

const (
	ApiErrorCodeUnknown = iota + 600
	ApiErrorCodeRequestPreparationFailed
	ApiErrorCodeRequestFailed
	ApiErrorCodeResponseDecodeFailed
)

const RequestIdHeader = "X-Request-Id"

// ApiResponse is the uniform result of every backend call: either Status is ApiStatusOk and Data holds the
// decoded payload, or Status is ApiStatusError and Error describes the failure.
type ApiResponse[T any] struct {
	Status string
	Code   int
	Data   T
	Error  *ApiError
}

func (r ApiResponse[T]) IsOk() bool {
	return r.Status == ApiStatusOk
}

// ApiError is the error part of an ApiResponse. The backend either sends a plain text body (Raw) or a JSON
// object produced by its exception handler (Status, Reason, Message).
type ApiError struct {
	Status  int    `json:"status,omitempty"`
	Reason  string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	Raw     string `json:"-"`
	Details string `json:"-"`
}

func (e ApiError) String() string {
	if e.Raw != "" {
		return fmt.Sprintf("API error %d: %s", e.Status, e.Raw)
	}
	return fmt.Sprintf("API error %d: %s - %s%s", e.Status, e.Reason, e.Message, e.Details)
}

// Request describes a single API call. Route is a path template relative to the API root, placeholders in
// curly braces are replaced by PathParams. The template itself is used as metrics label.
type Request struct {
	Method     string
	Route      string
	PathParams map[string]string
	Body       any
}

func (r Request) path() string {
	if len(r.PathParams) == 0 {
		return r.Route
	}
	replacements := make([]string, 0, 2*len(r.PathParams))
	for k, v := range r.PathParams {
		replacements = append(replacements, "{"+k+"}", url.PathEscape(v))
	}
	return strings.NewReplacer(replacements...).Replace(r.Route)
}

// RequestObserver gets notified about every finished request, e.g. to record metrics.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, duration time.Duration)
}

// VotingApiClient talks JSON over HTTP to the voting backend. It never retries, every call maps to exactly
// one HTTP request.
type VotingApiClient struct {
	coreCfg *config.Config
	cfg     *config.BackendConfig

	client   *http.Client
	log      *slog.Logger
	observer RequestObserver
}

func NewVotingApiClient(coreCfg *config.Config, observer RequestObserver) (*VotingApiClient, error) {
	c := &VotingApiClient{
		coreCfg:  coreCfg,
		cfg:      &coreCfg.Backend,
		observer: observer,
	}

	if err := c.setup(); err != nil {
		return nil, err
	}

	c.debugLog("voting api client created", "api_url", c.cfg.ApiUrl())

	return c, nil
}

func (c *VotingApiClient) setup() error {
	if _, err := url.Parse(c.cfg.ApiUrl()); err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	c.client = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !c.cfg.VerifyTls,
			},
		},
		Timeout: c.cfg.Timeout,
	}

	if c.cfg.Debug {
		c.log = slog.New(internal.GetLoggingHandler("debug",
			c.coreCfg.Advanced.LogPretty,
			c.coreCfg.Advanced.LogJson).
			WithAttrs([]slog.Attr{
				{
					Key: "backend", Value: slog.StringValue(c.cfg.BaseUrl),
				},
			}))
	}

	return nil
}

func (c *VotingApiClient) debugLog(msg string, args ...any) {
	if c.log != nil {
		c.log.Debug("[GW-API] "+msg, args...)
	}
}

func (c *VotingApiClient) getFullPath(path string) string {
	return c.cfg.ApiUrl() + "/" + strings.TrimLeft(path, "/")
}

func (c *VotingApiClient) prepareRequest(ctx context.Context, r Request) (*http.Request, string, error) {
	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.getFullPath(r.path()), body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	requestId := uuid.NewString()
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set(RequestIdHeader, requestId)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, requestId, nil
}

func errToApiResponse[T any](code int, message string, err error) ApiResponse[T] {
	return ApiResponse[T]{
		Status: ApiStatusError,
		Code:   code,
		Error: &ApiError{
			Status:  code,
			Message: message,
			Details: err.Error(),
		},
	}
}

func parseHttpResponse[T any](resp *http.Response, err error) ApiResponse[T] {
	if err != nil {
		return errToApiResponse[T](ApiErrorCodeRequestFailed, "", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errToApiResponse[T](ApiErrorCodeResponseDecodeFailed, "", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var data T
		if err := decodeBody(raw, &data); err != nil {
			return errToApiResponse[T](ApiErrorCodeResponseDecodeFailed, "", err)
		}
		return ApiResponse[T]{Status: ApiStatusOk, Code: resp.StatusCode, Data: data}
	}

	return ApiResponse[T]{Status: ApiStatusError, Code: resp.StatusCode, Error: decodeError(resp.StatusCode, raw)}
}

// decodeBody decodes a successful response. String targets accept both plain text and JSON string bodies,
// the backend answers most mutations with text/plain. An empty body leaves the target untouched.
func decodeBody(raw []byte, target any) error {
	trimmed := bytes.TrimSpace(raw)

	if strTarget, ok := target.(*string); ok {
		if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, strTarget) == nil {
			return nil
		}
		*strTarget = string(raw)
		return nil
	}

	if len(trimmed) == 0 {
		return nil
	}

	return json.Unmarshal(trimmed, target)
}

func decodeError(code int, raw []byte) *ApiError {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			return &ApiError{
				Status:  code,
				Reason:  internal.MapDefaultString(obj, "error", ""),
				Message: internal.MapDefaultString(obj, "message", ""),
			}
		}
	}

	var text string
	if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &text) == nil {
		return &ApiError{Status: code, Raw: text}
	}

	return &ApiError{Status: code, Raw: string(trimmed)}
}

// Call executes the given request and decodes a successful response into T.
func Call[T any](ctx context.Context, c *VotingApiClient, r Request) ApiResponse[T] {
	apiCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		apiCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, requestId, err := c.prepareRequest(apiCtx, r)
	if err != nil {
		return errToApiResponse[T](ApiErrorCodeRequestPreparationFailed, "", err)
	}

	start := time.Now()
	c.debugLog("executing API request", "method", r.Method, "url", req.URL.String(), "request_id", requestId)
	response := parseHttpResponse[T](c.client.Do(req))
	duration := time.Since(start)
	c.debugLog("retrieved API response", "method", r.Method, "url", req.URL.String(), "request_id", requestId,
		"status", response.Code, "duration", duration.String())

	if c.observer != nil {
		c.observer.ObserveRequest(r.Method, r.Route, response.Code, duration)
	}

	return response
}
