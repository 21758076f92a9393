package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkravets/ragline/internal/core/domain"
)

// RuleRepository stores ingestion rules. The repository settings payload is
// kept as the raw {"type": ..., "settings": {...}} envelope and decoded on
// read so unknown settings types fail at use, not at write.
type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) UpsertRule(ctx context.Context, ruleID string, repositorySettings []byte) error {
	if _, err := domain.DecodeRepositorySettings(repositorySettings); err != nil {
		return fmt.Errorf("validate repository settings: %w", err)
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingestion_rules (id, repository_settings, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO UPDATE SET repository_settings = EXCLUDED.repository_settings, updated_at = EXCLUDED.updated_at
`, ruleID, repositorySettings, now)
	if err != nil {
		return fmt.Errorf("upsert ingestion rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) GetRepositorySettings(ctx context.Context, ruleID string) (domain.RepositorySettings, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT repository_settings
FROM ingestion_rules
WHERE id = $1
`, ruleID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ingestion rule %s", domain.ErrInvalidInput, ruleID)
		}
		return nil, fmt.Errorf("scan ingestion rule: %w", err)
	}

	settings, err := domain.DecodeRepositorySettings(raw)
	if err != nil {
		return nil, fmt.Errorf("decode rule %s: %w", ruleID, err)
	}
	return settings, nil
}

func (r *RuleRepository) DeleteRule(ctx context.Context, ruleID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ingestion_rules WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("delete ingestion rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ingestion rule rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: ingestion rule %s", domain.ErrInvalidInput, ruleID)
	}
	return nil
}
