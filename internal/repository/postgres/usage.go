package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/flexprice/gatekeeper/internal/domain/usage"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/logger"
	"github.com/flexprice/gatekeeper/internal/postgres"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UsageRepository is the postgres-backed counter store. Live counters live in
// usage_counters, one row per key; superseded counters are appended to
// usage_counter_history on rollover and never updated again.
type UsageRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewUsageRepository(client postgres.IClient, log *logger.Logger) usage.Repository {
	return &UsageRepository{
		client: client,
		logger: log,
	}
}

const counterColumns = `id, customer_id, feature_id, resource_id, period_start, period_end,
	current_value, last_write_at, environment_id, tenant_id, status, created_at, updated_at,
	created_by, updated_by`

type counterRow struct {
	usage.Counter
	LastWriteAt sql.NullTime `db:"last_write_at"`
}

func (r *counterRow) toCounter() *usage.Counter {
	c := r.Counter
	if r.LastWriteAt.Valid {
		c.LastWriteAt = r.LastWriteAt.Time
	}
	return &c
}

func (r *UsageRepository) Get(ctx context.Context, key usage.CounterKey) (*usage.Counter, error) {
	var row counterRow
	err := r.client.DB().GetContext(ctx, &row, `
		SELECT `+counterColumns+`
		FROM usage_counters
		WHERE tenant_id = $1 AND customer_id = $2 AND feature_id = $3 AND resource_id = $4`,
		types.GetTenantID(ctx), key.CustomerID, key.FeatureID, key.ResourceID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("usage counter not found").
				WithReportableDetails(map[string]any{
					"key": key.String(),
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read usage counter").
			Mark(ierr.ErrDatabase)
	}
	return row.toCounter(), nil
}

func (r *UsageRepository) Upsert(ctx context.Context, c *usage.Counter) error {
	return r.upsert(ctx, r.client.DB(), c)
}

func (r *UsageRepository) upsert(ctx context.Context, q sqlx.ExtContext, c *usage.Counter) error {
	c.UpdatedAt = time.Now().UTC()

	var lastWrite interface{}
	if !c.LastWriteAt.IsZero() {
		lastWrite = c.LastWriteAt
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO usage_counters (`+counterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tenant_id, customer_id, feature_id, resource_id) DO UPDATE SET
			id = EXCLUDED.id,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			current_value = EXCLUDED.current_value,
			last_write_at = EXCLUDED.last_write_at,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.CustomerID, c.FeatureID, c.ResourceID, c.PeriodStart, c.PeriodEnd,
		c.CurrentValue, lastWrite, c.EnvironmentID, c.TenantID, c.Status,
		c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to write usage counter").
			WithReportableDetails(map[string]any{
				"key": c.Key().String(),
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *UsageRepository) Archive(ctx context.Context, c *usage.Counter) error {
	return r.client.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var lastWrite interface{}
		if !c.LastWriteAt.IsZero() {
			lastWrite = c.LastWriteAt
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO usage_counter_history (`+counterColumns+`, archived_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_COUNTER_HIST),
			c.CustomerID, c.FeatureID, c.ResourceID, c.PeriodStart, c.PeriodEnd,
			c.CurrentValue, lastWrite, c.EnvironmentID, c.TenantID, types.StatusArchived,
			c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy, time.Now().UTC(),
		)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to archive usage counter").
				Mark(ierr.ErrDatabase)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM usage_counters
			WHERE tenant_id = $1 AND customer_id = $2 AND feature_id = $3 AND resource_id = $4 AND id = $5`,
			c.TenantID, c.CustomerID, c.FeatureID, c.ResourceID, c.ID,
		)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to remove superseded usage counter").
				Mark(ierr.ErrDatabase)
		}
		return nil
	})
}

func (r *UsageRepository) ListArchived(ctx context.Context, key usage.CounterKey, from, to time.Time) ([]*usage.Counter, error) {
	var rows []counterRow
	err := r.client.DB().SelectContext(ctx, &rows, `
		SELECT `+counterColumns+`
		FROM usage_counter_history
		WHERE tenant_id = $1 AND customer_id = $2 AND feature_id = $3 AND resource_id = $4
			AND period_end > $5 AND period_start < $6
		ORDER BY period_start DESC`,
		types.GetTenantID(ctx), key.CustomerID, key.FeatureID, key.ResourceID, from, to,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list archived usage counters").
			Mark(ierr.ErrDatabase)
	}

	counters := make([]*usage.Counter, len(rows))
	for i := range rows {
		counters[i] = rows[i].toCounter()
	}
	return counters, nil
}

func (r *UsageRepository) DeleteByCustomer(ctx context.Context, customerID, resourceID string) error {
	query := `DELETE FROM usage_counters WHERE tenant_id = $1 AND customer_id = $2`
	args := []interface{}{types.GetTenantID(ctx), customerID}
	if resourceID != "" {
		query += ` AND resource_id = $3`
		args = append(args, resourceID)
	}

	res, err := r.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to drop usage counters for customer").
			WithReportableDetails(map[string]any{
				"customer_id": customerID,
			}).
			Mark(ierr.ErrDatabase)
	}

	if n, err := res.RowsAffected(); err == nil {
		r.logger.Debugw("dropped usage counters", "customer_id", customerID, "count", n)
	}
	return nil
}

// UpsertWithIdempotencyKey inserts the key and writes the counter in one
// transaction; a unique violation on the key rolls the whole write back, and a
// failed counter write never persists the key.
func (r *UsageRepository) UpsertWithIdempotencyKey(ctx context.Context, c *usage.Counter, key string, seenAt time.Time) (bool, error) {
	var dup bool
	err := r.client.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO usage_idempotency_keys (tenant_id, idempotency_key, seen_at)
			VALUES ($1, $2, $3)`,
			types.GetTenantID(ctx), key, seenAt,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
				dup = true
			}
			return ierr.WithError(err).
				WithHint("Failed to record idempotency key").
				Mark(ierr.ErrDatabase)
		}
		return r.upsert(ctx, tx, c)
	})
	if dup {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UsageRepository) PruneIdempotencyKeys(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.client.DB().ExecContext(ctx, `
		DELETE FROM usage_idempotency_keys WHERE seen_at < $1`, before)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to prune idempotency keys").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
