package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hive-corporation/iocscan/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveBatch(ctx context.Context, scanID, source string, iocs []domain.IOC) error {
	batch := &pgx.Batch{}

	query := `
		INSERT INTO scan_iocs (record_id, type, value, original_value, scan_id, source, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (value, scan_id) DO NOTHING
	`

	now := time.Now()
	for _, ioc := range iocs {
		batch.Queue(query,
			ioc.ID,
			ioc.Type,
			ioc.Value,
			ioc.OriginalValue,
			scanID,
			source,
			now,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	if _, err := br.Exec(); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByValue(ctx context.Context, value string) ([]domain.IOC, error) {
	query := `
		SELECT record_id, type, value, original_value
		FROM scan_iocs
		WHERE value = $1
		ORDER BY detected_at DESC
	`

	rows, err := r.db.Query(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query IOCs: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (r *PostgresRepository) FindSince(ctx context.Context, since time.Time, limit int) ([]domain.IOC, error) {
	query := `
		SELECT record_id, type, value, original_value
		FROM scan_iocs
		WHERE detected_at >= $1
		ORDER BY detected_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query IOCs since %v: %w", since, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]domain.IOC, error) {
	var iocs []domain.IOC

	for rows.Next() {
		var ioc domain.IOC
		if err := rows.Scan(&ioc.ID, &ioc.Type, &ioc.Value, &ioc.OriginalValue); err != nil {
			return nil, fmt.Errorf("failed to scan IOC row: %w", err)
		}
		iocs = append(iocs, ioc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return iocs, nil
}
