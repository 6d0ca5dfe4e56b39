package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/middleware/requestid"
)

const (
	tracerName      = "github.com/noah-isme/sma-adp-curriculum/pkg/executor"
	maxResponseSize = 8 << 20
)

// HTTPConfig configures the HTTP executor.
type HTTPConfig struct {
	BaseURL    string
	RolePrefix string
	Token      string
	Timeout    time.Duration
	Client     *http.Client
	Logger     *zap.Logger
	Tracer     trace.Tracer
}

// HTTPExecutor issues operations against the remote REST API.
type HTTPExecutor struct {
	baseURL string
	prefix  string
	token   string
	client  *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewHTTP builds an HTTP executor with defaults applied.
func NewHTTP(cfg HTTPConfig) *HTTPExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		prefix:  strings.TrimRight(cfg.RolePrefix, "/"),
		token:   cfg.Token,
		client:  client,
		logger:  logger,
		tracer:  tracer,
	}
}

// Execute implements Executor.
func (e *HTTPExecutor) Execute(ctx context.Context, op Operation) (*Result, error) {
	method := strings.ToUpper(strings.TrimSpace(op.Method))
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := e.tracer.Start(ctx, "executor."+op.Name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", op.Path),
	)

	req, err := e.newRequest(ctx, method, op)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		e.logger.Warn("executor transport failure", zap.String("operation", op.Name), zap.Error(err))
		failure := appErrors.NewRemoteFailure("upstream unreachable", "TRANSPORT", http.StatusBadGateway)
		failure.Err = err
		return nil, failure
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.RecordError(err)
		failure := appErrors.NewRemoteFailure("failed to read upstream response", "READ", http.StatusBadGateway)
		failure.Err = err
		return nil, failure
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	e.logger.Debug("executor call",
		zap.String("operation", op.Name),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if failure := failureFrom(resp.StatusCode, body); failure != nil {
		span.SetStatus(codes.Error, failure.Message)
		return nil, failure
	}
	return &Result{Status: resp.StatusCode, Data: json.RawMessage(body)}, nil
}

func (e *HTTPExecutor) newRequest(ctx context.Context, method string, op Operation) (*http.Request, error) {
	target := e.baseURL + e.prefix + "/" + strings.TrimLeft(op.Path, "/")
	if len(op.Params) > 0 {
		values := url.Values{}
		for k, v := range op.Params {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	var body io.Reader
	if op.Body != nil {
		payload, err := json.Marshal(op.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body for %s: %w", op.Name, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}
	return req, nil
}

// failureFrom reads the failure shapes the remote API emits: a flat
// {message, code}, a nested {error: {message, code}}, a bare {error: "..."},
// or a 2xx answer carrying success=false.
func failureFrom(status int, body []byte) *appErrors.Error {
	doc := gjson.ParseBytes(body)
	success := doc.Get("success")
	declined := doc.IsObject() && success.Exists() && !success.Bool()
	if status < http.StatusBadRequest && !declined {
		return nil
	}

	message := doc.Get("message").String()
	code := doc.Get("code").String()
	if nested := doc.Get("error"); nested.Exists() {
		if nested.IsObject() {
			if message == "" {
				message = nested.Get("message").String()
			}
			if code == "" {
				code = nested.Get("code").String()
			}
		} else if message == "" {
			message = nested.String()
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return appErrors.NewRemoteFailure(message, code, status)
}
