package integration

import (
	"context"
	"errors"
	"strings"

	"github.com/commandx/backend/internal/domain/accounting"
	"github.com/commandx/backend/internal/domain/integration"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"

	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
)

// AuthorizeSource identifies QuickBooks pushes in the violation log
const AuthorizeSource = "quickbooks_sync"

const syncActionCreate = "create"

// PeriodGate is the binding period lock check consulted before any push
type PeriodGate interface {
	Authorize(ctx context.Context, req periodlockapp.AuthorizeRequest) periodlockapp.Decision
	AuthorizeBatch(ctx context.Context, reqs []periodlockapp.AuthorizeRequest) []periodlockapp.Decision
}

// ErrUnsupportedDocument is returned for document types QuickBooks cannot hold
var ErrUnsupportedDocument = shared.NewDomainError("UNSUPPORTED_ENTITY", "This document type cannot be synced to QuickBooks")

// SyncService pushes financial documents to QuickBooks. Every push is
// authorized against the accounting period lock first; a blocked document is
// recorded in the sync log as skipped and never transmitted.
type SyncService struct {
	documents accounting.DocumentRepository
	mappings  integration.MappingRepository
	syncLog   integration.SyncLogRepository
	gateway   integration.QuickBooksGateway
	gate      PeriodGate
	logger    *zap.Logger
}

// SyncServiceConfig holds the dependencies of a SyncService
type SyncServiceConfig struct {
	Documents accounting.DocumentRepository
	Mappings  integration.MappingRepository
	SyncLog   integration.SyncLogRepository
	Gateway   integration.QuickBooksGateway
	Gate      PeriodGate
	Logger    *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		documents: cfg.Documents,
		mappings:  cfg.Mappings,
		syncLog:   cfg.SyncLog,
		gateway:   cfg.Gateway,
		gate:      cfg.Gate,
		logger:    logger.Named("quickbooks.sync"),
	}
}

// pending is a document that passed the pre-checks and awaits authorization
type pending struct {
	doc *accounting.FinancialDocument
	// mapping is a previous unsuccessful mapping, reused on success
	mapping *integration.Mapping
}

func (p pending) authorizeRequest(userID uuid.UUID) periodlockapp.AuthorizeRequest {
	id := p.doc.ID
	return periodlockapp.AuthorizeRequest{
		TenantID:   p.doc.TenantID,
		Date:       p.doc.TxnDate,
		EntityType: p.doc.EntityType.String(),
		EntityID:   &id,
		UserID:     userID,
		Action:     periodlock.ActionCreate,
		Source:     AuthorizeSource,
	}
}

// SyncDocument pushes one document. A document on a locked date yields a
// skipped result together with a PERIOD_LOCKED domain error carrying the
// gate's message.
func (s *SyncService) SyncDocument(ctx context.Context, tenantID, userID, documentID uuid.UUID) (*SyncResult, error) {
	p, done, err := s.prepare(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if done != nil {
		return done, nil
	}

	decision := s.gate.Authorize(ctx, p.authorizeRequest(userID))
	if !decision.Allowed {
		result := s.skip(ctx, p, decision)
		return &result, periodlock.NewPeriodLockedError(decision.Message)
	}

	result, err := s.push(ctx, p, userID)
	return &result, err
}

// SyncBatch pushes many documents. Period lock checks run in parallel; the
// pushes themselves are sequential. Per-document failures are reported in
// the results and never abort the batch. A repeated document ID is synced
// once and reported once, at its first position.
func (s *SyncService) SyncBatch(ctx context.Context, tenantID, userID uuid.UUID, req BatchSyncRequest) (*BatchSyncResponse, error) {
	ids := uniqueIDs(req.DocumentIDs)
	results := make([]SyncResult, len(ids))
	var (
		queue []pending
		slots []int
	)
	for i, id := range ids {
		p, done, err := s.prepare(ctx, tenantID, id)
		switch {
		case err != nil:
			results[i] = failedResult(id, "", err)
		case done != nil:
			results[i] = *done
		default:
			queue = append(queue, p)
			slots = append(slots, i)
		}
	}

	reqs := make([]periodlockapp.AuthorizeRequest, len(queue))
	for i, p := range queue {
		reqs[i] = p.authorizeRequest(userID)
	}
	decisions := s.gate.AuthorizeBatch(ctx, reqs)

	for i, p := range queue {
		if !decisions[i].Allowed {
			results[slots[i]] = s.skip(ctx, p, decisions[i])
			continue
		}
		if ctx.Err() != nil {
			results[slots[i]] = failedResult(p.doc.ID, p.doc.EntityType.String(), ctx.Err())
			continue
		}
		// push records its own failure in the sync log and the result
		results[slots[i]], _ = s.push(ctx, p, userID)
	}

	resp := &BatchSyncResponse{Results: results}
	for _, r := range results {
		switch r.Status {
		case integration.SyncOutcomeSuccess:
			resp.Succeeded++
		case integration.SyncOutcomeSkipped:
			resp.Skipped++
		default:
			resp.Failed++
		}
	}
	s.logger.Info("quickbooks batch sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ListSyncLog pages through the sync log, newest first
func (s *SyncService) ListSyncLog(ctx context.Context, tenantID uuid.UUID, f SyncLogListFilter) (shared.Paginated[SyncLogResponse], error) {
	page, pageSize := shared.NormalizePage(f.Page, f.PageSize)
	entries, total, err := s.syncLog.List(ctx, tenantID, integration.SyncLogFilter{
		EntityType: f.EntityType,
		Status:     integration.SyncOutcome(f.Status),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return shared.Paginated[SyncLogResponse]{}, err
	}
	items := make([]SyncLogResponse, len(entries))
	for i, e := range entries {
		items[i] = toSyncLogResponse(e)
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}

// prepare loads the document and short-circuits documents that are already
// synced. It returns either a pending push or a final result.
func (s *SyncService) prepare(ctx context.Context, tenantID, documentID uuid.UUID) (pending, *SyncResult, error) {
	doc, err := s.documents.FindByID(ctx, tenantID, documentID)
	if err != nil {
		return pending{}, nil, err
	}
	if _, ok := integration.QuickBooksEntity(doc.EntityType.String()); !ok {
		return pending{}, nil, ErrUnsupportedDocument
	}

	mapping, err := s.mappings.FindByLocalID(ctx, tenantID, doc.EntityType.String(), doc.ID)
	switch {
	case errors.Is(err, integration.ErrMappingNotFound):
		mapping = nil
	case err != nil:
		return pending{}, nil, err
	case mapping.SyncStatus == integration.SyncStatusSynced:
		return pending{}, &SyncResult{
			DocumentID:    doc.ID,
			EntityType:    doc.EntityType.String(),
			Status:        integration.SyncOutcomeSuccess,
			QuickBooksID:  mapping.QuickBooksID,
			AlreadySynced: true,
			Message:       capitalize(doc.EntityType.Label()) + " already synced",
		}, nil
	}
	return pending{doc: doc, mapping: mapping}, nil, nil
}

func (s *SyncService) skip(ctx context.Context, p pending, decision periodlockapp.Decision) SyncResult {
	entry := integration.NewSyncLogEntry(p.doc.TenantID, p.doc.EntityType.String(), p.doc.ID,
		syncActionCreate, integration.SyncOutcomeSkipped, decision.Message)
	entry.Details["reason"] = string(decision.Reason)
	entry.Details["txn_date"] = p.doc.TxnDate.String()
	if decision.PeriodName != "" {
		entry.Details["period_name"] = decision.PeriodName
	}
	s.appendLog(ctx, entry)

	return SyncResult{
		DocumentID: p.doc.ID,
		EntityType: p.doc.EntityType.String(),
		Status:     integration.SyncOutcomeSkipped,
		Message:    decision.Message,
		ErrorCode:  periodlock.CodePeriodLocked,
	}
}

func (s *SyncService) push(ctx context.Context, p pending, userID uuid.UUID) (SyncResult, error) {
	doc := p.doc
	counterparty, err := s.counterpartyRef(ctx, doc)
	if err != nil {
		return s.fail(ctx, doc, err), err
	}

	payload := integration.DocumentPush{
		TenantID:        doc.TenantID,
		EntityType:      doc.EntityType.String(),
		LocalID:         doc.ID,
		DocNumber:       doc.Number,
		TxnDate:         doc.TxnDate.String(),
		CounterpartyRef: counterparty,
		Total:           doc.Total,
		Memo:            doc.Memo,
		InitiatedBy:     userID,
	}
	if doc.DueDate != nil {
		payload.DueDate = doc.DueDate.String()
	}

	pushed, err := s.gateway.PushDocument(ctx, payload)
	if err != nil {
		return s.fail(ctx, doc, err), err
	}

	mapping := p.mapping
	if mapping != nil {
		mapping.QuickBooksID = pushed.QuickBooksID
		mapping.RecordSyncSuccess()
	} else if mapping, err = integration.NewMapping(doc.TenantID, doc.EntityType.String(), doc.ID, pushed.QuickBooksID); err != nil {
		return s.fail(ctx, doc, err), err
	}
	if err := s.mappings.Save(ctx, mapping); err != nil {
		// the entity exists in QuickBooks; without the mapping a retry would duplicate it
		s.logger.Error("quickbooks entity created but mapping not saved",
			zap.String("document_id", doc.ID.String()),
			zap.String("quickbooks_id", pushed.QuickBooksID),
			zap.Error(err),
		)
		return s.fail(ctx, doc, err), err
	}

	entry := integration.NewSyncLogEntry(doc.TenantID, doc.EntityType.String(), doc.ID,
		syncActionCreate, integration.SyncOutcomeSuccess, "")
	entry.QuickBooksID = pushed.QuickBooksID
	entry.Details["number"] = doc.Number
	entry.Details["total"] = doc.Total.StringFixed(2)
	s.appendLog(ctx, entry)

	return SyncResult{
		DocumentID:   doc.ID,
		EntityType:   doc.EntityType.String(),
		Status:       integration.SyncOutcomeSuccess,
		QuickBooksID: pushed.QuickBooksID,
		DocNumber:    pushed.DocNumber,
	}, nil
}

// counterpartyRef resolves the QuickBooks id of the document's vendor or
// customer. Counterparties must be synced before their documents.
func (s *SyncService) counterpartyRef(ctx context.Context, doc *accounting.FinancialDocument) (string, error) {
	kind := doc.EntityType.CounterpartyKind()
	if kind == accounting.CounterpartyNone {
		return "", nil
	}
	notMapped := func() error {
		name := doc.CounterpartyName
		if name == "" {
			name = "(none)"
		}
		if kind == accounting.CounterpartyVendor {
			return integration.NewVendorNotMappedError(name)
		}
		return integration.NewCustomerNotMappedError(name)
	}
	if doc.CounterpartyID == nil {
		return "", notMapped()
	}

	m, err := s.mappings.FindByLocalID(ctx, doc.TenantID, string(kind), *doc.CounterpartyID)
	if errors.Is(err, integration.ErrMappingNotFound) {
		return "", notMapped()
	}
	if err != nil {
		return "", err
	}
	if m.QuickBooksID == "" {
		return "", notMapped()
	}
	return m.QuickBooksID, nil
}

func (s *SyncService) fail(ctx context.Context, doc *accounting.FinancialDocument, err error) SyncResult {
	entry := integration.NewSyncLogEntry(doc.TenantID, doc.EntityType.String(), doc.ID,
		syncActionCreate, integration.SyncOutcomeFailed, err.Error())
	s.appendLog(ctx, entry)
	s.logger.Warn("quickbooks sync failed",
		zap.String("document_id", doc.ID.String()),
		zap.String("entity_type", doc.EntityType.String()),
		zap.Error(err),
	)
	return failedResult(doc.ID, doc.EntityType.String(), err)
}

func (s *SyncService) appendLog(ctx context.Context, entry *integration.SyncLogEntry) {
	if err := s.syncLog.Append(ctx, entry); err != nil {
		s.logger.Error("failed to write quickbooks sync log",
			zap.String("entity_id", entry.EntityID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
	}
}

func failedResult(id uuid.UUID, entityType string, err error) SyncResult {
	r := SyncResult{
		DocumentID: id,
		EntityType: entityType,
		Status:     integration.SyncOutcomeFailed,
		Message:    err.Error(),
	}
	if de, ok := shared.AsDomainError(err); ok {
		r.ErrorCode = de.Code
	}
	return r
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
