package accounting

import (
	"context"
	"time"

	"github.com/commandx/backend/internal/domain/accounting"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
)

// PeriodAuthorizer is the binding period lock check consulted before writes
type PeriodAuthorizer interface {
	Authorize(ctx context.Context, req periodlockapp.AuthorizeRequest) periodlockapp.Decision
}

// AuthorizeSource identifies document writes in the violation log
const AuthorizeSource = "document_service"

// DocumentService creates and revises financial documents. Every write is
// authorized against the accounting period lock before it reaches the
// repository.
type DocumentService struct {
	repo   accounting.DocumentRepository
	gate   PeriodAuthorizer
	logger *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(repo accounting.DocumentRepository, gate PeriodAuthorizer, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:   repo,
		gate:   gate,
		logger: logger.Named("documents"),
	}
}

// DocumentResponse represents a financial document in API responses
type DocumentResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	EntityType       string          `json:"entity_type"`
	Number           string          `json:"number"`
	TxnDate          string          `json:"txn_date"`
	DueDate          *string         `json:"due_date,omitempty"`
	CounterpartyID   *uuid.UUID      `json:"counterparty_id,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	ProjectID        *uuid.UUID      `json:"project_id,omitempty"`
	Total            decimal.Decimal `json:"total"`
	Memo             string          `json:"memo,omitempty"`
	CreatedBy        uuid.UUID       `json:"created_by"`
	UpdatedBy        uuid.UUID       `json:"updated_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// CreateDocumentRequest represents a request to create a document
type CreateDocumentRequest struct {
	EntityType       string          `json:"entity_type" binding:"required,oneof=invoice bill payroll purchase_order change_order sov_line"`
	Number           string          `json:"number" binding:"required,max=50"`
	TxnDate          string          `json:"txn_date" binding:"required"`
	DueDate          string          `json:"due_date"`
	CounterpartyID   *uuid.UUID      `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name" binding:"max=200"`
	ProjectID        *uuid.UUID      `json:"project_id"`
	Total            decimal.Decimal `json:"total"`
	Memo             string          `json:"memo" binding:"max=1000"`
}

// UpdateDocumentRequest represents a request to revise a document
type UpdateDocumentRequest struct {
	Number  string          `json:"number" binding:"required,max=50"`
	TxnDate string          `json:"txn_date" binding:"required"`
	DueDate string          `json:"due_date"`
	Total   decimal.Decimal `json:"total"`
	Memo    string          `json:"memo" binding:"max=1000"`
	// Version must match the stored version
	Version int `json:"version" binding:"required,min=1"`
}

// DocumentListFilter defines filtering options for document list queries
type DocumentListFilter struct {
	EntityType string `form:"entity_type"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// Create creates a document unless its date is locked
func (s *DocumentService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateDocumentRequest) (*DocumentResponse, error) {
	txnDate, err := periodlock.ParseDate(req.TxnDate)
	if err != nil {
		return nil, err
	}
	entityType := accounting.EntityType(req.EntityType)

	doc, err := accounting.NewFinancialDocument(tenantID, userID, entityType, req.Number, txnDate, req.Total)
	if err != nil {
		return nil, err
	}
	if req.CounterpartyID != nil {
		doc.SetCounterparty(*req.CounterpartyID, req.CounterpartyName)
	}
	doc.ProjectID = req.ProjectID
	doc.Memo = req.Memo
	if err := s.applyDueDate(doc, req.DueDate); err != nil {
		return nil, err
	}

	if err := s.ensureUniqueNumber(ctx, doc, nil); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, doc, txnDate, userID, periodlock.ActionCreate); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// Update revises a document. Both the stored and the requested transaction
// dates must be open: a document cannot be moved into or out of a locked
// period.
func (s *DocumentService) Update(ctx context.Context, tenantID, userID, id uuid.UUID, req UpdateDocumentRequest) (*DocumentResponse, error) {
	txnDate, err := periodlock.ParseDate(req.TxnDate)
	if err != nil {
		return nil, err
	}

	doc, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if doc.Version != req.Version {
		return nil, shared.ErrConcurrencyConflict
	}

	original := doc.TxnDate
	if err := s.authorize(ctx, doc, original, userID, periodlock.ActionUpdate); err != nil {
		return nil, err
	}
	if !txnDate.Equal(original) {
		if err := s.authorize(ctx, doc, txnDate, userID, periodlock.ActionUpdate); err != nil {
			return nil, err
		}
	}

	if err := doc.Revise(req.Number, txnDate, req.Total, req.Memo, userID); err != nil {
		return nil, err
	}
	if err := s.applyDueDate(doc, req.DueDate); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueNumber(ctx, doc, &doc.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// GetByID returns one document
func (s *DocumentService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// List pages through documents, newest transaction date first
func (s *DocumentService) List(ctx context.Context, tenantID uuid.UUID, f DocumentListFilter) (shared.Paginated[DocumentResponse], error) {
	page, pageSize := shared.NormalizePage(f.Page, f.PageSize)
	filter := accounting.DocumentFilter{
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
		Page:      page,
		PageSize:  pageSize,
	}
	if f.EntityType != "" {
		filter.EntityType = accounting.EntityType(f.EntityType)
		if !filter.EntityType.IsValid() {
			return shared.Paginated[DocumentResponse]{}, shared.NewDomainError("INVALID_ENTITY_TYPE", "Unsupported document type")
		}
	}

	docs, total, err := s.repo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[DocumentResponse]{}, err
	}
	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = *toDocumentResponse(&docs[i])
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}

func (s *DocumentService) authorize(
	ctx context.Context,
	doc *accounting.FinancialDocument,
	date periodlock.CalendarDate,
	userID uuid.UUID,
	action periodlock.Action,
) error {
	var entityID *uuid.UUID
	if action == periodlock.ActionUpdate {
		id := doc.ID
		entityID = &id
	}
	decision := s.gate.Authorize(ctx, periodlockapp.AuthorizeRequest{
		TenantID:   doc.TenantID,
		Date:       date,
		EntityType: doc.EntityType.String(),
		EntityID:   entityID,
		UserID:     userID,
		Action:     action,
		Source:     AuthorizeSource,
	})
	if decision.Allowed {
		return nil
	}
	s.logger.Info("document write blocked by period lock",
		zap.String("tenant_id", doc.TenantID.String()),
		zap.String("entity_type", doc.EntityType.String()),
		zap.String("number", doc.Number),
		zap.String("date", date.String()),
		zap.String("reason", string(decision.Reason)),
	)
	return periodlock.NewPeriodLockedError(decision.Message)
}

func (s *DocumentService) applyDueDate(doc *accounting.FinancialDocument, raw string) error {
	if raw == "" {
		return doc.SetDueDate(nil)
	}
	due, err := periodlock.ParseDate(raw)
	if err != nil {
		return err
	}
	return doc.SetDueDate(&due)
}

func (s *DocumentService) ensureUniqueNumber(ctx context.Context, doc *accounting.FinancialDocument, excludeID *uuid.UUID) error {
	exists, err := s.repo.ExistsByNumber(ctx, doc.TenantID, doc.EntityType, doc.Number, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A "+doc.EntityType.Label()+" with this number already exists")
	}
	return nil
}

func toDocumentResponse(d *accounting.FinancialDocument) *DocumentResponse {
	resp := &DocumentResponse{
		ID:               d.ID,
		TenantID:         d.TenantID,
		EntityType:       d.EntityType.String(),
		Number:           d.Number,
		TxnDate:          d.TxnDate.String(),
		CounterpartyID:   d.CounterpartyID,
		CounterpartyName: d.CounterpartyName,
		ProjectID:        d.ProjectID,
		Total:            d.Total,
		Memo:             d.Memo,
		CreatedBy:        d.CreatedBy,
		UpdatedBy:        d.UpdatedBy,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Version:          d.Version,
	}
	if d.DueDate != nil {
		due := d.DueDate.String()
		resp.DueDate = &due
	}
	return resp
}
