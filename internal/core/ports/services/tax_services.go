package services

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
)

// W9Svc manages W-9 submissions.
type W9Svc interface {
	SubmitW9(ctx context.Context, req dto.SubmitW9Request, actorID string) (*domain.W9Information, error)
	ApproveW9(ctx context.Context, w9ID, actorID string) (*domain.W9Information, error)
	RejectW9(ctx context.Context, w9ID, reason, actorID string) (*domain.W9Information, error)
	GetW9(ctx context.Context, consultantID, actorID string) (*domain.W9Information, error)
	ListPendingW9(ctx context.Context, actorID string) ([]domain.W9Information, error)
}

// TaxDocumentSvc manages year-end tax forms.
type TaxDocumentSvc interface {
	Generate1099NEC(ctx context.Context, consultantID string, taxYear int, actorID string) (*domain.TaxDocument, error)
	MarkTaxDocumentSent(ctx context.Context, documentID, actorID string) (*domain.TaxDocument, error)
	MarkTaxDocumentFiled(ctx context.Context, documentID, actorID string) (*domain.TaxDocument, error)
	ListTaxDocuments(ctx context.Context, consultantID *string, year *int) ([]domain.TaxDocument, error)
}

// TaxSvcFacade combines tax services.
type TaxSvcFacade interface {
	W9Svc
	TaxDocumentSvc
}
