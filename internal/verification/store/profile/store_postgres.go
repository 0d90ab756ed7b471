package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"verigate/internal/platform/postgres"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	txcontext "verigate/pkg/platform/tx"
)

// PostgresStore persists role profiles. Execute locks the row with
// SELECT ... FOR UPDATE for the duration of the callbacks.
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

const profileColumns = `user_id, role, status, completion, level, submitted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.RoleProfile, error) {
	var (
		p                   models.RoleProfile
		userID              uuid.UUID
		role, status, level string
		submittedAt         sql.NullTime
	)
	if err := row.Scan(&userID, &role, &status, &p.CompletionPercentage, &level,
		&submittedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UserID = id.UserID(userID)
	p.Role = models.Role(role)
	p.Status = models.ProfileStatus(status)
	p.VerificationLevel = models.VerificationLevel(level)
	if submittedAt.Valid {
		t := submittedAt.Time
		p.SubmittedAt = &t
	}
	return &p, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *models.RoleProfile) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO role_profiles (`+profileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(p.UserID), string(p.Role), string(p.Status), p.CompletionPercentage,
		string(p.VerificationLevel), p.SubmittedAt, p.CreatedAt, p.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error) {
	p, err := scanProfile(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM role_profiles WHERE user_id = $1 AND role = $2`,
		uuid.UUID(userID), string(role)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return p, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleProfile, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+profileColumns+` FROM role_profiles WHERE user_id = $1 ORDER BY created_at, role`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer rows.Close()

	var out []*models.RoleProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return out, nil
}

// Execute locks the profile row, runs validate then mutate, and writes the
// result back in the same transaction. It joins the caller's transaction
// when ctx carries one.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, role models.Role, validate func(*models.RoleProfile) error, mutate func(*models.RoleProfile)) (*models.RoleProfile, error) {
	var result *models.RoleProfile
	err := s.inTx(ctx, func(ctx context.Context, q dbExecutor) error {
		p, err := scanProfile(q.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM role_profiles WHERE user_id = $1 AND role = $2 FOR UPDATE`,
			uuid.UUID(userID), string(role)))
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock profile: %w", errors.Join(sentinel.ErrUnavailable, err))
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)

		_, err = q.ExecContext(ctx,
			`UPDATE role_profiles
			 SET status = $3, completion = $4, level = $5, submitted_at = $6, updated_at = $7
			 WHERE user_id = $1 AND role = $2`,
			uuid.UUID(userID), string(role), string(p.Status), p.CompletionPercentage,
			string(p.VerificationLevel), p.SubmittedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update profile: %w", errors.Join(sentinel.ErrUnavailable, err))
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

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
