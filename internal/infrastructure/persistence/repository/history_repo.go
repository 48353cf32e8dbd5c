package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Append records one history entry
func (r *HistoryRepository) Append(ctx context.Context, entry *claim.HistoryEntry) error {
	query := `
		INSERT INTO claim_history (claim_id, actor_id, from_status, to_status, action, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		entry.ClaimID.String(),
		entry.ActorID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.Action,
		entry.Detail,
	)
	if err != nil {
		r.logger.Error("Failed to append history", zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByClaimID retrieves a claim's history, oldest first
func (r *HistoryRepository) ListByClaimID(ctx context.Context, claimID uuid.UUID) ([]*claim.HistoryEntry, error) {
	query := `
		SELECT id, claim_id, actor_id, from_status, to_status, action, detail, created_at
		FROM claim_history
		WHERE claim_id = ?
		ORDER BY id
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, claimID.String())
	if err != nil {
		r.logger.Error("Failed to list history", zap.String("claim_id", claimID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*claim.HistoryEntry
	for rows.Next() {
		var (
			entry      claim.HistoryEntry
			claimIDStr string
			fromStatus string
			toStatus   string
		)
		if err := rows.Scan(
			&entry.ID, &claimIDStr, &entry.ActorID,
			&fromStatus, &toStatus, &entry.Action, &entry.Detail, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		if entry.ClaimID, err = uuid.Parse(claimIDStr); err != nil {
			return nil, fmt.Errorf("invalid claim id: %w", err)
		}
		entry.FromStatus = claim.Status(fromStatus)
		entry.ToStatus = claim.Status(toStatus)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
