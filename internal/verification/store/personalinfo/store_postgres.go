package personalinfo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	txcontext "verigate/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*models.PersonalInfo, error) {
	info := models.PersonalInfo{UserID: userID}
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT full_name, date_of_birth, phone_number, residential_address, updated_at
		 FROM personal_info WHERE user_id = $1`, uuid.UUID(userID)).
		Scan(&info.FullName, &info.DateOfBirth, &info.PhoneNumber, &info.ResidentialAddress, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get personal info: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return &info, nil
}

func (s *PostgresStore) Save(ctx context.Context, info *models.PersonalInfo) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO personal_info (user_id, full_name, date_of_birth, phone_number, residential_address, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			phone_number = EXCLUDED.phone_number,
			residential_address = EXCLUDED.residential_address,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(info.UserID), info.FullName, info.DateOfBirth, info.PhoneNumber,
		info.ResidentialAddress, info.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save personal info: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}
