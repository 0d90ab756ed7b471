package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	txcontext "verigate/pkg/platform/tx"
)

// PostgresStore persists documents. Decisions are conditional updates on
// status = 'pending', so concurrent reviewers cannot both win.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `id, owner_id, type, status, document_number, evidence_refs,
	submitted_at, reviewed_at, reviewed_by, rejection_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc            models.Document
		docID, ownerID uuid.UUID
		docType        string
		status         string
		number         sql.NullString
		refs           pq.StringArray
		reviewedAt     sql.NullTime
		reviewedBy     sql.NullString
		reason         sql.NullString
	)
	if err := row.Scan(&docID, &ownerID, &docType, &status, &number, &refs,
		&doc.SubmittedAt, &reviewedAt, &reviewedBy, &reason); err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.OwnerID = id.UserID(ownerID)
	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatus(status)
	doc.DocumentNumber = number.String
	doc.EvidenceRefs = []string(refs)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		doc.ReviewedAt = &t
	}
	doc.ReviewedBy = reviewedBy.String
	doc.RejectionReason = reason.String
	return &doc, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Document, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE owner_id = $1 ORDER BY submitted_at, id`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]models.Document, error) {
	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := scanDocument(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(docID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return doc, nil
}

// Upload inserts doc and returns the record it supersedes. An advisory lock
// on (owner, type) serializes uploads of the same type.
func (s *PostgresStore) Upload(ctx context.Context, doc *models.Document) (*models.Document, error) {
	var previous *models.Document
	err := s.inTx(ctx, func(ctx context.Context, q dbExecutor) error {
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
			doc.OwnerID.String()+":"+string(doc.Type)); err != nil {
			return fmt.Errorf("lock document type: %w", errors.Join(sentinel.ErrUnavailable, err))
		}

		prev, err := scanDocument(q.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE owner_id = $1 AND type = $2
			 ORDER BY submitted_at DESC, id DESC LIMIT 1`,
			uuid.UUID(doc.OwnerID), string(doc.Type)))
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("load latest document: %w", errors.Join(sentinel.ErrUnavailable, err))
		case prev.Status == models.DocumentApproved:
			return sentinel.ErrConflict
		default:
			previous = prev
		}

		var number sql.NullString
		if doc.DocumentNumber != "" {
			number = sql.NullString{String: doc.DocumentNumber, Valid: true}
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO documents (id, owner_id, type, status, document_number, evidence_refs, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.UUID(doc.ID), uuid.UUID(doc.OwnerID), string(doc.Type), string(doc.Status),
			number, pq.StringArray(doc.EvidenceRefs), doc.SubmittedAt)
		if err != nil {
			return fmt.Errorf("insert document: %w", errors.Join(sentinel.ErrUnavailable, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// Decide applies a decision with a conditional UPDATE.
func (s *PostgresStore) Decide(ctx context.Context, docID id.DocumentID, decision models.Decision, reason, reviewer string, now time.Time) (*models.Document, error) {
	status := models.DocumentApproved
	var rejection sql.NullString
	if decision == models.DecisionReject {
		status = models.DocumentRejected
		rejection = sql.NullString{String: reason, Valid: true}
	}

	doc, err := scanDocument(s.execer(ctx).QueryRowContext(ctx,
		`UPDATE documents
		 SET status = $2, reviewed_at = $3, reviewed_by = $4, rejection_reason = $5
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+documentColumns,
		uuid.UUID(docID), string(status), now, reviewer, rejection))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decide document: %w", errors.Join(sentinel.ErrUnavailable, err))
	}

	existing, findErr := s.FindByID(ctx, docID)
	if findErr != nil {
		return nil, findErr
	}
	return existing, sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE status = 'pending' ORDER BY submitted_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer rows.Close()
	return collect(rows)
}

// inTx joins the caller's transaction or opens one for fn.
func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context, q dbExecutor) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(ctx, tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}
