// Package quickbooks is the outbound QuickBooks Online client. It pushes
// financial documents, refreshes OAuth tokens, and writes every API call
// to the QuickBooks API log.
package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/commandx/backend/internal/domain/integration"
	"github.com/commandx/backend/internal/infrastructure/config"
	"github.com/commandx/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	minorVersion = "65"
	userAgent    = "CommandX/1.0"
	// maxResponseSize caps how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

var (
	ErrMissingRealmID   = errors.New("quickbooks: realm id is required")
	ErrNoExpenseAccount = errors.New("quickbooks: no suitable expense account found")
)

// CallRecorder receives the duration of each outbound call
type CallRecorder interface {
	RecordQuickBooksCall(ctx context.Context, function string, status int, d time.Duration)
}

// Client talks to the QuickBooks Online accounting API for one company
type Client struct {
	cfg        config.QuickBooksConfig
	httpClient *http.Client
	apiLog     integration.APILogRepository
	metrics    CallRecorder
	logger     *zap.Logger
	now        func() time.Time

	tokenMu sync.Mutex
	token   tokenState

	accountMu      sync.Mutex
	expenseAccount *accountRef
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPILog records every call in repo
func WithAPILog(repo integration.APILogRepository) Option {
	return func(c *Client) {
		c.apiLog = repo
	}
}

// WithMetrics records call durations
func WithMetrics(m CallRecorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client for cfg.RealmID. Tokens in cfg seed the
// in-memory token state.
func NewClient(cfg config.QuickBooksConfig, opts ...Option) (*Client, error) {
	if cfg.RealmID == "" {
		return nil, ErrMissingRealmID
	}
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
		now:    time.Now,
		token: tokenState{
			access:  cfg.AccessToken,
			refresh: cfg.RefreshToken,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("quickbooks")
	return c, nil
}

// PushDocument creates the document in QuickBooks
func (c *Client) PushDocument(ctx context.Context, doc integration.DocumentPush) (integration.PushResult, error) {
	entity, ok := integration.QuickBooksEntity(doc.EntityType)
	if !ok {
		return integration.PushResult{}, fmt.Errorf("%w: %s", integration.ErrUnsupportedEntity, doc.EntityType)
	}

	accessToken, err := c.accessToken(ctx)
	if err != nil {
		return integration.PushResult{}, err
	}

	var payload map[string]any
	switch entity {
	case entityInvoice:
		payload = invoicePayload(doc, c.cfg.InvoiceItemID)
	default:
		account, err := c.expenseAccountRef(ctx, accessToken, doc)
		if err != nil {
			return integration.PushResult{}, err
		}
		payload = expensePayload(doc, account)
	}

	body, err := c.do(ctx, apiCall{
		function: "create_" + doc.EntityType,
		method:   http.MethodPost,
		endpoint: "/" + strings.ToLower(entity) + "?minorversion=" + minorVersion,
		body:     payload,
		token:    accessToken,
		doc:      &doc,
	})
	if err != nil {
		return integration.PushResult{}, err
	}

	created, err := decodeCreated(body, entity)
	if err != nil {
		return integration.PushResult{}, err
	}
	c.logger.Info("Document created in QuickBooks",
		zap.String("entity_type", doc.EntityType),
		zap.String("entity_id", doc.LocalID.String()),
		zap.String("quickbooks_id", created.ID))
	return integration.PushResult{QuickBooksID: created.ID, DocNumber: created.DocNumber}, nil
}

type apiCall struct {
	function string
	method   string
	endpoint string
	body     map[string]any
	token    string
	doc      *integration.DocumentPush
}

// do performs one API call and logs it. Non-2xx responses are returned as
// ErrRequestFailed carrying the QuickBooks fault message.
func (c *Client) do(ctx context.Context, call apiCall) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "quickbooks."+call.function,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrQBFunction, call.function),
		telemetry.WithAttribute(telemetry.SpanAttrQBEndpoint, call.endpoint),
	)
	defer span.End()

	entry := c.newLogEntry(call)
	status, body, err := c.send(ctx, call)
	c.finishLogEntry(ctx, entry, status, body, err)

	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Error("QuickBooks API call failed",
			zap.String("function", call.function),
			zap.String("endpoint", call.endpoint),
			zap.Int("status", status),
			zap.Error(err))
		return nil, err
	}
	telemetry.SetAttributes(span, "http.status_code", status)
	return body, nil
}

func (c *Client) send(ctx context.Context, call apiCall) (int, []byte, error) {
	var reqBody io.Reader
	if call.body != nil {
		data, err := json.Marshal(call.body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode %s request: %w", call.function, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.method, c.companyURL(call.endpoint), reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build %s request: %w", call.function, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.token)
	req.Header.Set("User-Agent", userAgent)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordCall(ctx, call.function, 0, start)
		return 0, nil, fmt.Errorf("%w: %v", integration.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.recordCall(ctx, call.function, resp.StatusCode, start)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, body, fmt.Errorf("%w: status %d: %s",
			integration.ErrRequestFailed, resp.StatusCode, faultMessage(body))
	}
	return resp.StatusCode, body, nil
}

func (c *Client) companyURL(endpoint string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + c.cfg.RealmID + endpoint
}

func (c *Client) recordCall(ctx context.Context, function string, status int, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordQuickBooksCall(ctx, function, status, c.now().Sub(start))
	}
}

func (c *Client) newLogEntry(call apiCall) *integration.APILogEntry {
	entry := &integration.APILogEntry{
		ID:             uuid.New(),
		FunctionName:   call.function,
		Method:         call.method,
		Endpoint:       call.endpoint,
		RequestPayload: integration.SanitizePayload(call.body),
		RequestSentAt:  c.now(),
	}
	if call.doc != nil {
		id := call.doc.LocalID
		entry.TenantID = call.doc.TenantID
		entry.EntityType = call.doc.EntityType
		entry.EntityID = &id
		if call.doc.InitiatedBy != uuid.Nil {
			by := call.doc.InitiatedBy
			entry.InitiatedBy = &by
		}
	}
	return entry
}

// finishLogEntry completes and stores entry. Log write failures never fail
// the call.
func (c *Client) finishLogEntry(ctx context.Context, entry *integration.APILogEntry, status int, body []byte, callErr error) {
	if c.apiLog == nil {
		return
	}
	entry.HTTPStatus = status
	if status != 0 {
		received := c.now()
		entry.ResponseReceivedAt = &received
	}
	if len(body) > 0 {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			entry.ResponsePayload = integration.SanitizePayload(parsed)
			entry.QuickBooksEntityID = createdID(parsed)
		} else {
			entry.ResponsePayload = integration.RawResponsePayload(string(body))
		}
	}
	if callErr != nil {
		entry.ErrorMessage = callErr.Error()
	}

	if err := c.apiLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("Failed to write QuickBooks API log",
			zap.String("function", entry.FunctionName),
			zap.Error(err))
	}
}

var _ integration.QuickBooksGateway = (*Client)(nil)

// Disconnected is the gateway used when no QuickBooks company is configured.
// Every push fails with integration.ErrNotConnected.
type Disconnected struct{}

// PushDocument implements integration.QuickBooksGateway
func (Disconnected) PushDocument(context.Context, integration.DocumentPush) (integration.PushResult, error) {
	return integration.PushResult{}, integration.ErrNotConnected
}
