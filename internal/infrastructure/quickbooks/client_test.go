package quickbooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/commandx/backend/internal/domain/integration"
	"github.com/commandx/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL  = "https://qb.test/v3/company"
	testTokenURL = "https://oauth.test/tokens/bearer"
	testRealm    = "9130"
)

var (
	tokenEndpoint   = testTokenURL
	queryEndpoint   = testBaseURL + "/" + testRealm + "/query"
	poEndpoint      = testBaseURL + "/" + testRealm + "/purchaseorder"
	billEndpoint    = testBaseURL + "/" + testRealm + "/bill"
	invoiceEndpoint = testBaseURL + "/" + testRealm + "/invoice"
)

type recordingAPILog struct {
	mu      sync.Mutex
	entries []*integration.APILogEntry
	err     error
}

func (r *recordingAPILog) Append(_ context.Context, e *integration.APILogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

type recordedCall struct {
	function string
	status   int
}

type recordingMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (m *recordingMetrics) RecordQuickBooksCall(_ context.Context, function string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{function, status})
}

func testConfig() config.QuickBooksConfig {
	return config.QuickBooksConfig{
		BaseURL:       testBaseURL,
		TokenURL:      testTokenURL,
		RealmID:       testRealm,
		ClientID:      "client",
		ClientSecret:  "secret",
		RefreshToken:  "refresh-1",
		InvoiceItemID: "1",
		Timeout:       5 * time.Second,
	}
}

func newTestClient(t *testing.T, cfg config.QuickBooksConfig, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: mt})}, opts...)
	c, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return c, mt
}

func tokenResponder(t *testing.T, access string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		user, pass, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "refresh_token", req.PostForm.Get("grant_type"))
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"access_token":  access,
			"refresh_token": "refresh-2",
			"expires_in":    3600,
			"token_type":    "bearer",
		})
	}
}

func accountsResponder(accounts ...map[string]any) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
		"QueryResponse": map[string]any{"Account": accounts},
	})
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func samplePush(entityType string) integration.DocumentPush {
	return integration.DocumentPush{
		TenantID:        uuid.New(),
		EntityType:      entityType,
		LocalID:         uuid.New(),
		DocNumber:       "PO-1001",
		TxnDate:         "2025-02-14",
		DueDate:         "2025-03-14",
		CounterpartyRef: "56",
		Total:           decimal.RequireFromString("1250.5"),
		Memo:            "Concrete delivery",
		InitiatedBy:     uuid.New(),
	}
}

func TestNewClient_RequiresRealm(t *testing.T) {
	cfg := testConfig()
	cfg.RealmID = ""
	_, err := NewClient(cfg)
	assert.ErrorIs(t, err, ErrMissingRealmID)
}

func TestPushDocument_PurchaseOrder(t *testing.T) {
	apiLog := &recordingAPILog{}
	metrics := &recordingMetrics{}
	c, mt := newTestClient(t, testConfig(), WithAPILog(apiLog), WithMetrics(metrics))

	mt.RegisterResponder(http.MethodPost, tokenEndpoint, tokenResponder(t, "access-1"))
	mt.RegisterResponder(http.MethodGet, queryEndpoint,
		accountsResponder(map[string]any{"Id": "80", "Name": "Cost of Goods Sold"}))
	mt.RegisterResponder(http.MethodPost, poEndpoint, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer access-1", req.Header.Get("Authorization"))
		assert.Equal(t, "CommandX/1.0", req.Header.Get("User-Agent"))
		assert.Equal(t, "65", req.URL.Query().Get("minorversion"))

		body := decodeBody(t, req)
		assert.Equal(t, map[string]any{"value": "56"}, body["VendorRef"])
		assert.Equal(t, "2025-02-14", body["TxnDate"])
		assert.Equal(t, "PO-1001", body["DocNumber"])
		assert.Equal(t, "Concrete delivery", body["Memo"])

		lines := body["Line"].([]any)
		require.Len(t, lines, 1)
		line := lines[0].(map[string]any)
		assert.Equal(t, 1250.5, line["Amount"])
		assert.Equal(t, "AccountBasedExpenseLineDetail", line["DetailType"])
		detail := line["AccountBasedExpenseLineDetail"].(map[string]any)
		assert.Equal(t, map[string]any{"value": "80", "name": "Cost of Goods Sold"}, detail["AccountRef"])

		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"PurchaseOrder": map[string]any{"Id": "311", "DocNumber": "PO-1001"},
		})
	})

	push := samplePush("purchase_order")
	res, err := c.PushDocument(context.Background(), push)
	require.NoError(t, err)
	assert.Equal(t, "311", res.QuickBooksID)
	assert.Equal(t, "PO-1001", res.DocNumber)

	require.Len(t, apiLog.entries, 2)
	query, create := apiLog.entries[0], apiLog.entries[1]
	assert.Equal(t, "query_expense_account", query.FunctionName)
	assert.Equal(t, http.MethodGet, query.Method)
	assert.Equal(t, "create_purchase_order", create.FunctionName)
	assert.Equal(t, "/purchaseorder?minorversion=65", create.Endpoint)
	assert.Equal(t, http.StatusOK, create.HTTPStatus)
	assert.Equal(t, "311", create.QuickBooksEntityID)
	assert.Equal(t, push.TenantID, create.TenantID)
	require.NotNil(t, create.EntityID)
	assert.Equal(t, push.LocalID, *create.EntityID)
	require.NotNil(t, create.InitiatedBy)
	assert.Equal(t, push.InitiatedBy, *create.InitiatedBy)
	assert.NotNil(t, create.ResponseReceivedAt)
	assert.Empty(t, create.ErrorMessage)

	assert.Equal(t, []recordedCall{
		{"refresh_token", http.StatusOK},
		{"query_expense_account", http.StatusOK},
		{"create_purchase_order", http.StatusOK},
	}, metrics.calls)
}

func TestPushDocument_ExpenseAccountFallbackIsCached(t *testing.T) {
	c, mt := newTestClient(t, testConfig())
	mt.RegisterResponder(http.MethodPost, tokenEndpoint, tokenResponder(t, "access-1"))

	queries := 0
	mt.RegisterResponder(http.MethodGet, queryEndpoint, func(req *http.Request) (*http.Response, error) {
		queries++
		if queries == 1 {
			assert.Contains(t, req.URL.Query().Get("query"), "Cost of Goods Sold")
			return accountsResponder()(req)
		}
		assert.Contains(t, req.URL.Query().Get("query"), "'Expense'")
		return accountsResponder(map[string]any{"Id": "7", "Name": "Job Materials"})(req)
	})
	mt.RegisterResponder(http.MethodPost, billEndpoint, func(req *http.Request) (*http.Response, error) {
		body := decodeBody(t, req)
		line := body["Line"].([]any)[0].(map[string]any)
		detail := line["AccountBasedExpenseLineDetail"].(map[string]any)
		assert.Equal(t, "7", detail["AccountRef"].(map[string]any)["value"])
		assert.Equal(t, "Concrete delivery", body["PrivateNote"])
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{"Bill": map[string]any{"Id": "900"}})
	})

	ctx := context.Background()
	_, err := c.PushDocument(ctx, samplePush("bill"))
	require.NoError(t, err)
	_, err = c.PushDocument(ctx, samplePush("bill"))
	require.NoError(t, err)

	assert.Equal(t, 2, queries, "account lookup runs once per client")
	assert.Equal(t, 1, mt.GetCallCountInfo()["POST "+tokenEndpoint], "token is reused until near expiry")
	assert.Equal(t, 2, mt.GetCallCountInfo()["POST "+billEndpoint])
}

func TestPushDocument_NoExpenseAccount(t *testing.T) {
	c, mt := newTestClient(t, testConfig())
	mt.RegisterResponder(http.MethodPost, tokenEndpoint, tokenResponder(t, "access-1"))
	mt.RegisterResponder(http.MethodGet, queryEndpoint, accountsResponder())

	_, err := c.PushDocument(context.Background(), samplePush("purchase_order"))
	assert.ErrorIs(t, err, ErrNoExpenseAccount)
	assert.Zero(t, mt.GetCallCountInfo()["POST "+poEndpoint])
}

func TestPushDocument_Invoice(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshToken = ""
	cfg.AccessToken = "static-token"
	c, mt := newTestClient(t, cfg)

	mt.RegisterResponder(http.MethodPost, invoiceEndpoint, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer static-token", req.Header.Get("Authorization"))
		body := decodeBody(t, req)
		assert.Equal(t, map[string]any{"value": "56"}, body["CustomerRef"])
		assert.Equal(t, "2025-03-14", body["DueDate"])
		line := body["Line"].([]any)[0].(map[string]any)
		assert.Equal(t, "SalesItemLineDetail", line["DetailType"])
		assert.Equal(t, map[string]any{"ItemRef": map[string]any{"value": "1"}}, line["SalesItemLineDetail"])
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"Invoice": map[string]any{"Id": "42", "DocNumber": "1001"},
		})
	})

	res, err := c.PushDocument(context.Background(), samplePush("invoice"))
	require.NoError(t, err)
	assert.Equal(t, "42", res.QuickBooksID)
	assert.Zero(t, mt.GetCallCountInfo()["GET "+queryEndpoint])
	assert.Zero(t, mt.GetCallCountInfo()["POST "+tokenEndpoint])
}

func TestPushDocument_FaultResponse(t *testing.T) {
	apiLog := &recordingAPILog{}
	cfg := testConfig()
	cfg.RefreshToken = ""
	cfg.AccessToken = "static-token"
	c, mt := newTestClient(t, cfg, WithAPILog(apiLog))

	mt.RegisterResponder(http.MethodPost, invoiceEndpoint, httpmock.NewJsonResponderOrPanic(http.StatusBadRequest, map[string]any{
		"Fault": map[string]any{
			"Error": []any{map[string]any{
				"Message": "Object Not Found",
				"Detail":  "Object Not Found : Something you're trying to use has been made inactive.",
			}},
			"type": "ValidationFault",
		},
	}))

	_, err := c.PushDocument(context.Background(), samplePush("invoice"))
	require.ErrorIs(t, err, integration.ErrRequestFailed)
	assert.Contains(t, err.Error(), "made inactive")

	require.Len(t, apiLog.entries, 1)
	entry := apiLog.entries[0]
	assert.Equal(t, http.StatusBadRequest, entry.HTTPStatus)
	assert.Contains(t, entry.ErrorMessage, "status 400")
	assert.IsType(t, map[string]any{}, entry.ResponsePayload)
}

func TestPushDocument_NonJSONErrorBodyIsLoggedRaw(t *testing.T) {
	apiLog := &recordingAPILog{}
	cfg := testConfig()
	cfg.RefreshToken = ""
	cfg.AccessToken = "static-token"
	c, mt := newTestClient(t, cfg, WithAPILog(apiLog))

	mt.RegisterResponder(http.MethodPost, invoiceEndpoint,
		httpmock.NewStringResponder(http.StatusBadGateway, "<html>Bad Gateway</html>"))

	_, err := c.PushDocument(context.Background(), samplePush("invoice"))
	require.ErrorIs(t, err, integration.ErrRequestFailed)

	require.Len(t, apiLog.entries, 1)
	assert.Equal(t, map[string]any{"raw_text": "<html>Bad Gateway</html>"}, apiLog.entries[0].ResponsePayload)
}

func TestPushDocument_TransportError(t *testing.T) {
	apiLog := &recordingAPILog{}
	metrics := &recordingMetrics{}
	cfg := testConfig()
	cfg.RefreshToken = ""
	cfg.AccessToken = "static-token"
	c, mt := newTestClient(t, cfg, WithAPILog(apiLog), WithMetrics(metrics))

	mt.RegisterResponder(http.MethodPost, invoiceEndpoint, httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := c.PushDocument(context.Background(), samplePush("invoice"))
	require.ErrorIs(t, err, integration.ErrRequestFailed)

	require.Len(t, apiLog.entries, 1)
	assert.Zero(t, apiLog.entries[0].HTTPStatus)
	assert.Nil(t, apiLog.entries[0].ResponseReceivedAt)
	assert.Equal(t, []recordedCall{{"create_invoice", 0}}, metrics.calls)
}

func TestPushDocument_APILogFailureIsSwallowed(t *testing.T) {
	apiLog := &recordingAPILog{err: errors.New("disk full")}
	cfg := testConfig()
	cfg.RefreshToken = ""
	cfg.AccessToken = "static-token"
	c, mt := newTestClient(t, cfg, WithAPILog(apiLog))

	mt.RegisterResponder(http.MethodPost, invoiceEndpoint, httpmock.NewJsonResponderOrPanic(http.StatusOK,
		map[string]any{"Invoice": map[string]any{"Id": "42"}}))

	res, err := c.PushDocument(context.Background(), samplePush("invoice"))
	require.NoError(t, err)
	assert.Equal(t, "42", res.QuickBooksID)
}

func TestPushDocument_MissingEntityInResponse(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshToken = ""
	cfg.AccessToken = "static-token"
	c, mt := newTestClient(t, cfg)

	mt.RegisterResponder(http.MethodPost, invoiceEndpoint, httpmock.NewJsonResponderOrPanic(http.StatusOK,
		map[string]any{"time": "2025-02-14T10:00:00Z"}))

	_, err := c.PushDocument(context.Background(), samplePush("invoice"))
	assert.ErrorIs(t, err, integration.ErrInvalidResponse)
}

func TestPushDocument_UnsupportedEntity(t *testing.T) {
	c, mt := newTestClient(t, testConfig())

	_, err := c.PushDocument(context.Background(), samplePush("journal_entry"))
	assert.ErrorIs(t, err, integration.ErrUnsupportedEntity)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestAccessToken_NotConnected(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshToken = ""
	c, mt := newTestClient(t, cfg)

	_, err := c.PushDocument(context.Background(), samplePush("invoice"))
	assert.ErrorIs(t, err, integration.ErrNotConnected)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestAccessToken_RefreshRejected(t *testing.T) {
	c, mt := newTestClient(t, testConfig())
	mt.RegisterResponder(http.MethodPost, tokenEndpoint,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"invalid_grant"}`))

	_, err := c.PushDocument(context.Background(), samplePush("invoice"))
	assert.ErrorIs(t, err, integration.ErrNotConnected)
	assert.Zero(t, mt.GetCallCountInfo()["POST "+invoiceEndpoint])
}

func TestAccessToken_RefreshesNearExpiry(t *testing.T) {
	now := time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)
	c, mt := newTestClient(t, testConfig(), WithClock(func() time.Time { return now }))

	refreshes := 0
	mt.RegisterResponder(http.MethodPost, tokenEndpoint, func(req *http.Request) (*http.Response, error) {
		refreshes++
		require.NoError(t, req.ParseForm())
		if refreshes == 2 {
			assert.Equal(t, "refresh-2", req.PostForm.Get("refresh_token"), "rotated refresh token is used")
		}
		return tokenResponder(t, "access-"+string(rune('0'+refreshes)))(req)
	})

	ctx := context.Background()
	tok, err := c.accessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)

	now = now.Add(50 * time.Minute)
	tok, err = c.accessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)

	now = now.Add(6 * time.Minute)
	tok, err = c.accessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)
	assert.Equal(t, 2, refreshes)
}

func TestFaultMessage(t *testing.T) {
	assert.Equal(t, "bad thing", faultMessage([]byte(`{"Fault":{"Error":[{"Message":"bad thing"}]}}`)))
	assert.Equal(t, "plain", faultMessage([]byte("plain")))
	assert.Len(t, faultMessage(make([]byte, 500)), 200)
}

func TestDisconnected(t *testing.T) {
	_, err := Disconnected{}.PushDocument(context.Background(), integration.DocumentPush{EntityType: "bill"})
	assert.ErrorIs(t, err, integration.ErrNotConnected)
}
