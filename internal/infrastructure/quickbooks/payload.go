package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/commandx/backend/internal/domain/integration"
)

// QuickBooks entity names
const (
	entityInvoice       = "Invoice"
	entityBill          = "Bill"
	entityPurchaseOrder = "PurchaseOrder"
)

type accountRef struct {
	ID   string
	Name string
}

// expenseAccountRef finds the account used on bill and purchase order lines:
// the first Cost of Goods Sold account, else the first Expense account. The
// result is cached for the life of the client.
func (c *Client) expenseAccountRef(ctx context.Context, token string, doc integration.DocumentPush) (accountRef, error) {
	c.accountMu.Lock()
	defer c.accountMu.Unlock()
	if c.expenseAccount != nil {
		return *c.expenseAccount, nil
	}

	for _, accountType := range []string{"Cost of Goods Sold", "Expense"} {
		query := fmt.Sprintf("SELECT * FROM Account WHERE AccountType = '%s' MAXRESULTS 1", accountType)
		body, err := c.do(ctx, apiCall{
			function: "query_expense_account",
			method:   http.MethodGet,
			endpoint: "/query?query=" + url.QueryEscape(query) + "&minorversion=" + minorVersion,
			token:    token,
			doc:      &doc,
		})
		if err != nil {
			return accountRef{}, err
		}

		var resp struct {
			QueryResponse struct {
				Account []struct {
					ID   string `json:"Id"`
					Name string `json:"Name"`
				} `json:"Account"`
			} `json:"QueryResponse"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return accountRef{}, fmt.Errorf("%w: account query: %v", integration.ErrInvalidResponse, err)
		}
		if len(resp.QueryResponse.Account) > 0 {
			a := resp.QueryResponse.Account[0]
			c.expenseAccount = &accountRef{ID: a.ID, Name: a.Name}
			return *c.expenseAccount, nil
		}
	}
	return accountRef{}, ErrNoExpenseAccount
}

func invoicePayload(doc integration.DocumentPush, itemID string) map[string]any {
	line := map[string]any{
		"Amount":     json.Number(doc.Total.StringFixed(2)),
		"DetailType": "SalesItemLineDetail",
		"SalesItemLineDetail": map[string]any{
			"ItemRef": map[string]any{"value": itemID},
		},
	}
	if doc.Memo != "" {
		line["Description"] = doc.Memo
	}
	p := headerPayload(doc)
	p["CustomerRef"] = map[string]any{"value": doc.CounterpartyRef}
	p["Line"] = []any{line}
	if doc.Memo != "" {
		p["CustomerMemo"] = map[string]any{"value": doc.Memo}
	}
	return p
}

// expensePayload builds a bill or purchase order with a single
// account-based line, which needs no item catalog in QuickBooks.
func expensePayload(doc integration.DocumentPush, account accountRef) map[string]any {
	line := map[string]any{
		"LineNum":    1,
		"Amount":     json.Number(doc.Total.StringFixed(2)),
		"DetailType": "AccountBasedExpenseLineDetail",
		"AccountBasedExpenseLineDetail": map[string]any{
			"AccountRef": map[string]any{"value": account.ID, "name": account.Name},
		},
	}
	if doc.Memo != "" {
		line["Description"] = doc.Memo
	}
	p := headerPayload(doc)
	p["VendorRef"] = map[string]any{"value": doc.CounterpartyRef}
	p["Line"] = []any{line}
	if doc.Memo != "" {
		if doc.EntityType == "purchase_order" {
			p["Memo"] = doc.Memo
		} else {
			p["PrivateNote"] = doc.Memo
		}
	}
	return p
}

func headerPayload(doc integration.DocumentPush) map[string]any {
	p := map[string]any{"TxnDate": doc.TxnDate}
	if doc.DocNumber != "" {
		p["DocNumber"] = doc.DocNumber
	}
	if doc.DueDate != "" {
		p["DueDate"] = doc.DueDate
	}
	return p
}

type createdEntity struct {
	ID        string `json:"Id"`
	DocNumber string `json:"DocNumber"`
}

func decodeCreated(body []byte, entity string) (createdEntity, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return createdEntity{}, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	raw, ok := wrapper[entity]
	if !ok {
		return createdEntity{}, fmt.Errorf("%w: response has no %s", integration.ErrInvalidResponse, entity)
	}
	var created createdEntity
	if err := json.Unmarshal(raw, &created); err != nil {
		return createdEntity{}, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	if created.ID == "" {
		return createdEntity{}, fmt.Errorf("%w: %s has no Id", integration.ErrInvalidResponse, entity)
	}
	return created, nil
}

// createdID extracts the Id of a created entity from a decoded response
func createdID(parsed any) string {
	m, ok := parsed.(map[string]any)
	if !ok {
		return ""
	}
	for _, entity := range []string{entityInvoice, entityBill, entityPurchaseOrder} {
		if e, ok := m[entity].(map[string]any); ok {
			if id, ok := e["Id"].(string); ok {
				return id
			}
		}
	}
	return ""
}

// faultMessage returns the first QuickBooks fault detail, or the raw body
func faultMessage(body []byte) string {
	var fault struct {
		Fault struct {
			Error []struct {
				Message string `json:"Message"`
				Detail  string `json:"Detail"`
			} `json:"Error"`
		} `json:"Fault"`
	}
	if err := json.Unmarshal(body, &fault); err == nil && len(fault.Fault.Error) > 0 {
		e := fault.Fault.Error[0]
		if e.Detail != "" {
			return e.Detail
		}
		return e.Message
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
