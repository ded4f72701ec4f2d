package pgsql

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPaymentRepository persists payment transactions, reconciliations, the payment audit
// log, payment methods, W-9s and tax documents.
type PgxPaymentRepository struct {
	BaseRepository
}

func newPgxPaymentRepository(pool *pgxpool.Pool) portsrepo.PaymentRepositoryWithTx {
	return &PgxPaymentRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PaymentRepositoryWithTx = (*PgxPaymentRepository)(nil)

func nullableStatus[S ~string](s *S) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// --- Transactions ---

const transactionColumns = `transaction_id, batch_id, payment_method_id, total_amount, status, external_reference,
	confirmation_code, failure_reason, retry_count, initiated_by, initiated_at, completed_at, notes,
	created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (domain.PaymentTransaction, error) {
	var t domain.PaymentTransaction
	err := row.Scan(&t.TransactionID, &t.BatchID, &t.PaymentMethodID, &t.TotalAmount, &t.Status, &t.ExternalReference,
		&t.ConfirmationCode, &t.FailureReason, &t.RetryCount, &t.InitiatedBy, &t.InitiatedAt, &t.CompletedAt, &t.Notes,
		&t.CreatedAt, &t.CreatedBy, &t.LastUpdatedAt, &t.LastUpdatedBy)
	return t, err
}

func (r *PgxPaymentRepository) SaveTransaction(ctx context.Context, tx pgx.Tx, t domain.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := tx.Exec(ctx, query,
		t.TransactionID, t.BatchID, t.PaymentMethodID, t.TotalAmount, string(t.Status), t.ExternalReference,
		t.ConfirmationCode, t.FailureReason, t.RetryCount, t.InitiatedBy, t.InitiatedAt, t.CompletedAt, t.Notes,
		t.CreatedAt, t.CreatedBy, t.LastUpdatedAt, t.LastUpdatedBy,
	)
	return mapDBError(err, "save payment transaction for batch "+t.BatchID)
}

func (r *PgxPaymentRepository) findTransaction(ctx context.Context, q querier, id, query string, arg string) (*domain.PaymentTransaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFoundOr(err, "payment transaction", id)
	}
	return &t, nil
}

func (r *PgxPaymentRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE transaction_id = $1;`
	return r.findTransaction(ctx, r.Pool, transactionID, query, transactionID)
}

func (r *PgxPaymentRepository) FindTransactionByIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE transaction_id = $1 FOR UPDATE;`
	return r.findTransaction(ctx, tx, transactionID, query, transactionID)
}

func (r *PgxPaymentRepository) FindTransactionByBatchID(ctx context.Context, tx pgx.Tx, batchID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE batch_id = $1;`
	return r.findTransaction(ctx, r.db(tx), "for batch "+batchID, query, batchID)
}

func (r *PgxPaymentRepository) UpdateTransaction(ctx context.Context, tx pgx.Tx, t domain.PaymentTransaction) error {
	query := `
		UPDATE payment_transactions
		SET payment_method_id = $2, status = $3, external_reference = $4, confirmation_code = $5,
		    failure_reason = $6, retry_count = $7, completed_at = $8, notes = $9,
		    last_updated_at = $10, last_updated_by = $11
		WHERE transaction_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query,
		t.TransactionID, t.PaymentMethodID, string(t.Status), t.ExternalReference, t.ConfirmationCode,
		t.FailureReason, t.RetryCount, t.CompletedAt, t.Notes, t.LastUpdatedAt, t.LastUpdatedBy,
	)
	if err != nil {
		return mapDBError(err, "update payment transaction "+t.TransactionID)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "payment transaction", t.TransactionID)
	}
	return nil
}

func (r *PgxPaymentRepository) ListTransactions(ctx context.Context, status *domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY initiated_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, nullableStatus(status))
	if err != nil {
		return nil, mapDBError(err, "query payment transactions")
	}
	ts, err := collect(rows, func(rows pgx.Rows) (domain.PaymentTransaction, error) { return scanTransaction(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan payment transactions")
	}
	return ts, nil
}

func (r *PgxPaymentRepository) CountOpenTransactionsForMethod(ctx context.Context, tx pgx.Tx, paymentMethodID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM payment_transactions WHERE payment_method_id = $1 AND status IN ($2, $3);`
	err := r.db(tx).QueryRow(ctx, query, paymentMethodID, string(domain.PaymentPending), string(domain.PaymentProcessing)).Scan(&n)
	if err != nil {
		return 0, mapDBError(err, "count open transactions for method "+paymentMethodID)
	}
	return n, nil
}

// --- Reconciliations ---

const reconciliationColumns = `reconciliation_id, batch_id, transaction_id, reconciliation_date, expected_amount,
	actual_amount, discrepancy, status, notes, resolution_notes, reconciled_by, resolved_by, resolved_at, created_at`

func scanReconciliation(row pgx.Row) (domain.PaymentReconciliation, error) {
	var rc domain.PaymentReconciliation
	err := row.Scan(&rc.ReconciliationID, &rc.BatchID, &rc.TransactionID, &rc.ReconciliationDate, &rc.ExpectedAmount,
		&rc.ActualAmount, &rc.Discrepancy, &rc.Status, &rc.Notes, &rc.ResolutionNotes, &rc.ReconciledBy,
		&rc.ResolvedBy, &rc.ResolvedAt, &rc.CreatedAt)
	return rc, err
}

func (r *PgxPaymentRepository) SaveReconciliation(ctx context.Context, tx pgx.Tx, rc domain.PaymentReconciliation) error {
	query := `
		INSERT INTO payment_reconciliations (` + reconciliationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := tx.Exec(ctx, query,
		rc.ReconciliationID, rc.BatchID, rc.TransactionID, rc.ReconciliationDate, rc.ExpectedAmount,
		rc.ActualAmount, rc.Discrepancy, string(rc.Status), rc.Notes, rc.ResolutionNotes, rc.ReconciledBy,
		rc.ResolvedBy, rc.ResolvedAt, rc.CreatedAt,
	)
	return mapDBError(err, "save reconciliation for batch "+rc.BatchID)
}

func (r *PgxPaymentRepository) FindReconciliationByIDForUpdate(ctx context.Context, tx pgx.Tx, reconciliationID string) (*domain.PaymentReconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM payment_reconciliations WHERE reconciliation_id = $1 FOR UPDATE;`
	rc, err := scanReconciliation(tx.QueryRow(ctx, query, reconciliationID))
	if err != nil {
		return nil, notFoundOr(err, "reconciliation", reconciliationID)
	}
	return &rc, nil
}

func (r *PgxPaymentRepository) UpdateReconciliation(ctx context.Context, tx pgx.Tx, rc domain.PaymentReconciliation) error {
	query := `
		UPDATE payment_reconciliations
		SET status = $2, resolution_notes = $3, resolved_by = $4, resolved_at = $5
		WHERE reconciliation_id = $1;
	`
	_, err := tx.Exec(ctx, query, rc.ReconciliationID, string(rc.Status), rc.ResolutionNotes, rc.ResolvedBy, rc.ResolvedAt)
	return mapDBError(err, "update reconciliation "+rc.ReconciliationID)
}

func (r *PgxPaymentRepository) ListReconciliations(ctx context.Context, status *domain.ReconciliationStatus) ([]domain.PaymentReconciliation, error) {
	query := `
		SELECT ` + reconciliationColumns + `
		FROM payment_reconciliations
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY reconciliation_date DESC, created_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, nullableStatus(status))
	if err != nil {
		return nil, mapDBError(err, "query reconciliations")
	}
	rcs, err := collect(rows, func(rows pgx.Rows) (domain.PaymentReconciliation, error) { return scanReconciliation(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan reconciliations")
	}
	return rcs, nil
}

// --- Audit ---

// AppendPaymentAudit stores Details as jsonb.
func (r *PgxPaymentRepository) AppendPaymentAudit(ctx context.Context, tx pgx.Tx, entry domain.PaymentAuditEntry) error {
	query := `
		INSERT INTO payment_audit_log (audit_id, action, actor_id, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := tx.Exec(ctx, query, entry.AuditID, string(entry.Action), entry.ActorID, entry.EntityType, entry.EntityID, details, entry.CreatedAt)
	return mapDBError(err, "append payment audit for "+entry.EntityType+" "+entry.EntityID)
}

func (r *PgxPaymentRepository) ListPaymentAudit(ctx context.Context, entityType, entityID string) ([]domain.PaymentAuditEntry, error) {
	query := `
		SELECT audit_id, action, actor_id, entity_type, entity_id, details, created_at
		FROM payment_audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY seq;
	`
	rows, err := r.Pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, mapDBError(err, "query payment audit")
	}
	entries, err := collect(rows, func(rows pgx.Rows) (domain.PaymentAuditEntry, error) {
		var e domain.PaymentAuditEntry
		err := rows.Scan(&e.AuditID, &e.Action, &e.ActorID, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, mapDBError(err, "scan payment audit")
	}
	return entries, nil
}

// --- Payment methods ---

const methodColumns = `payment_method_id, consultant_id, method_type, bank_name, account_number_encrypted,
	account_last4, routing_number_encrypted, status, is_default, verified_by, verified_at,
	created_at, created_by, last_updated_at, last_updated_by`

func scanMethod(row pgx.Row) (domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := row.Scan(&m.PaymentMethodID, &m.ConsultantID, &m.MethodType, &m.BankName, &m.AccountNumberEncrypted,
		&m.AccountLast4, &m.RoutingNumberEncrypted, &m.Status, &m.IsDefault, &m.VerifiedBy, &m.VerifiedAt,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
	return m, err
}

func (r *PgxPaymentRepository) SavePaymentMethod(ctx context.Context, tx pgx.Tx, m domain.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (` + methodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := tx.Exec(ctx, query,
		m.PaymentMethodID, m.ConsultantID, string(m.MethodType), m.BankName, m.AccountNumberEncrypted,
		m.AccountLast4, m.RoutingNumberEncrypted, string(m.Status), m.IsDefault, m.VerifiedBy, m.VerifiedAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	return mapDBError(err, "save payment method for "+m.ConsultantID)
}

func (r *PgxPaymentRepository) FindPaymentMethodByIDForUpdate(ctx context.Context, tx pgx.Tx, paymentMethodID string) (*domain.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE payment_method_id = $1 FOR UPDATE;`
	m, err := scanMethod(tx.QueryRow(ctx, query, paymentMethodID))
	if err != nil {
		return nil, notFoundOr(err, "payment method", paymentMethodID)
	}
	return &m, nil
}

func (r *PgxPaymentRepository) UpdatePaymentMethod(ctx context.Context, tx pgx.Tx, m domain.PaymentMethod) error {
	query := `
		UPDATE payment_methods
		SET status = $2, is_default = $3, verified_by = $4, verified_at = $5, last_updated_at = $6, last_updated_by = $7
		WHERE payment_method_id = $1;
	`
	_, err := tx.Exec(ctx, query, m.PaymentMethodID, string(m.Status), m.IsDefault, m.VerifiedBy, m.VerifiedAt, m.LastUpdatedAt, m.LastUpdatedBy)
	return mapDBError(err, "update payment method "+m.PaymentMethodID)
}

func (r *PgxPaymentRepository) ClearDefaultPaymentMethods(ctx context.Context, tx pgx.Tx, consultantID string) error {
	_, err := tx.Exec(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE consultant_id = $1 AND is_default;`, consultantID)
	return mapDBError(err, "clear default payment methods for "+consultantID)
}

func (r *PgxPaymentRepository) ListPaymentMethods(ctx context.Context, consultantID string) ([]domain.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE consultant_id = $1 ORDER BY created_at, payment_method_id;`
	rows, err := r.Pool.Query(ctx, query, consultantID)
	if err != nil {
		return nil, mapDBError(err, "query payment methods")
	}
	ms, err := collect(rows, func(rows pgx.Rows) (domain.PaymentMethod, error) { return scanMethod(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan payment methods")
	}
	return ms, nil
}

// --- W-9 ---

const w9Columns = `w9_id, consultant_id, legal_name, business_name, entity_type, tin_encrypted, tin_last4,
	address_line1, address_line2, city, state, zip_code, status, reviewed_by, reviewed_at, rejection_reason,
	created_at, created_by, last_updated_at, last_updated_by`

func scanW9(row pgx.Row) (domain.W9Information, error) {
	var w domain.W9Information
	err := row.Scan(&w.W9ID, &w.ConsultantID, &w.LegalName, &w.BusinessName, &w.EntityType, &w.TINEncrypted, &w.TINLast4,
		&w.AddressLine1, &w.AddressLine2, &w.City, &w.State, &w.ZipCode, &w.Status, &w.ReviewedBy, &w.ReviewedAt,
		&w.RejectionReason, &w.CreatedAt, &w.CreatedBy, &w.LastUpdatedAt, &w.LastUpdatedBy)
	return w, err
}

// UpsertW9 keeps one row per consultant. A resubmission replaces the form data and review
// state but keeps the original ID and creation stamp.
func (r *PgxPaymentRepository) UpsertW9(ctx context.Context, tx pgx.Tx, w domain.W9Information) (*domain.W9Information, error) {
	query := `
		INSERT INTO w9_information (` + w9Columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (consultant_id) DO UPDATE SET
			legal_name = EXCLUDED.legal_name,
			business_name = EXCLUDED.business_name,
			entity_type = EXCLUDED.entity_type,
			tin_encrypted = EXCLUDED.tin_encrypted,
			tin_last4 = EXCLUDED.tin_last4,
			address_line1 = EXCLUDED.address_line1,
			address_line2 = EXCLUDED.address_line2,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip_code = EXCLUDED.zip_code,
			status = EXCLUDED.status,
			reviewed_by = EXCLUDED.reviewed_by,
			reviewed_at = EXCLUDED.reviewed_at,
			rejection_reason = EXCLUDED.rejection_reason,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by
		RETURNING ` + w9Columns + `;
	`
	stored, err := scanW9(tx.QueryRow(ctx, query,
		w.W9ID, w.ConsultantID, w.LegalName, w.BusinessName, string(w.EntityType), w.TINEncrypted, w.TINLast4,
		w.AddressLine1, w.AddressLine2, w.City, w.State, w.ZipCode, string(w.Status), w.ReviewedBy, w.ReviewedAt,
		w.RejectionReason, w.CreatedAt, w.CreatedBy, w.LastUpdatedAt, w.LastUpdatedBy,
	))
	if err != nil {
		return nil, mapDBError(err, "upsert W-9 for "+w.ConsultantID)
	}
	return &stored, nil
}

func (r *PgxPaymentRepository) FindW9ByConsultant(ctx context.Context, tx pgx.Tx, consultantID string) (*domain.W9Information, error) {
	query := `SELECT ` + w9Columns + ` FROM w9_information WHERE consultant_id = $1;`
	w, err := scanW9(r.db(tx).QueryRow(ctx, query, consultantID))
	if err != nil {
		return nil, notFoundOr(err, "W-9 for", consultantID)
	}
	return &w, nil
}

func (r *PgxPaymentRepository) FindW9ByIDForUpdate(ctx context.Context, tx pgx.Tx, w9ID string) (*domain.W9Information, error) {
	query := `SELECT ` + w9Columns + ` FROM w9_information WHERE w9_id = $1 FOR UPDATE;`
	w, err := scanW9(tx.QueryRow(ctx, query, w9ID))
	if err != nil {
		return nil, notFoundOr(err, "W-9", w9ID)
	}
	return &w, nil
}

func (r *PgxPaymentRepository) UpdateW9Review(ctx context.Context, tx pgx.Tx, w domain.W9Information) error {
	query := `
		UPDATE w9_information
		SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5, last_updated_at = $6, last_updated_by = $7
		WHERE w9_id = $1;
	`
	_, err := tx.Exec(ctx, query, w.W9ID, string(w.Status), w.ReviewedBy, w.ReviewedAt, w.RejectionReason, w.LastUpdatedAt, w.LastUpdatedBy)
	return mapDBError(err, "update W-9 review "+w.W9ID)
}

func (r *PgxPaymentRepository) ListW9ByStatus(ctx context.Context, status domain.W9Status) ([]domain.W9Information, error) {
	query := `SELECT ` + w9Columns + ` FROM w9_information WHERE status = $1 ORDER BY last_updated_at;`
	rows, err := r.Pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, mapDBError(err, "query W-9s")
	}
	ws, err := collect(rows, func(rows pgx.Rows) (domain.W9Information, error) { return scanW9(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan W-9s")
	}
	return ws, nil
}

// --- Tax documents ---

const taxDocumentColumns = `document_id, consultant_id, tax_year, document_type, total_amount, status, file_hash,
	generated_by, generated_at, sent_at, filed_at`

func scanTaxDocument(row pgx.Row) (domain.TaxDocument, error) {
	var d domain.TaxDocument
	err := row.Scan(&d.DocumentID, &d.ConsultantID, &d.TaxYear, &d.DocumentType, &d.TotalAmount, &d.Status, &d.FileHash,
		&d.GeneratedBy, &d.GeneratedAt, &d.SentAt, &d.FiledAt)
	return d, err
}

func (r *PgxPaymentRepository) SaveTaxDocument(ctx context.Context, tx pgx.Tx, d domain.TaxDocument) error {
	query := `INSERT INTO tax_documents (` + taxDocumentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	_, err := tx.Exec(ctx, query,
		d.DocumentID, d.ConsultantID, d.TaxYear, string(d.DocumentType), d.TotalAmount, string(d.Status), d.FileHash,
		d.GeneratedBy, d.GeneratedAt, d.SentAt, d.FiledAt,
	)
	return mapDBError(err, "save tax document for "+d.ConsultantID)
}

func (r *PgxPaymentRepository) FindTaxDocumentByIDForUpdate(ctx context.Context, tx pgx.Tx, documentID string) (*domain.TaxDocument, error) {
	query := `SELECT ` + taxDocumentColumns + ` FROM tax_documents WHERE document_id = $1 FOR UPDATE;`
	d, err := scanTaxDocument(tx.QueryRow(ctx, query, documentID))
	if err != nil {
		return nil, notFoundOr(err, "tax document", documentID)
	}
	return &d, nil
}

func (r *PgxPaymentRepository) UpdateTaxDocumentStatus(ctx context.Context, tx pgx.Tx, d domain.TaxDocument) error {
	query := `UPDATE tax_documents SET status = $2, sent_at = $3, filed_at = $4 WHERE document_id = $1;`
	_, err := tx.Exec(ctx, query, d.DocumentID, string(d.Status), d.SentAt, d.FiledAt)
	return mapDBError(err, "update tax document "+d.DocumentID)
}

func (r *PgxPaymentRepository) ListTaxDocuments(ctx context.Context, consultantID *string, year *int) ([]domain.TaxDocument, error) {
	query := `
		SELECT ` + taxDocumentColumns + `
		FROM tax_documents
		WHERE ($1::text IS NULL OR consultant_id = $1) AND ($2::int IS NULL OR tax_year = $2)
		ORDER BY tax_year DESC, consultant_id;
	`
	rows, err := r.Pool.Query(ctx, query, consultantID, year)
	if err != nil {
		return nil, mapDBError(err, "query tax documents")
	}
	docs, err := collect(rows, func(rows pgx.Rows) (domain.TaxDocument, error) { return scanTaxDocument(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan tax documents")
	}
	return docs, nil
}
