package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository persists saved analysis reports. Reports share the store
// with entitlement records but are plain documents with no push subscription.
type ReportRepository interface {
	CreateReport(ctx context.Context, rep *model.Report) error
	GetReportByID(ctx context.Context, id string) (*model.Report, error)
	GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error)
	DeleteReport(ctx context.Context, id, userID string) error
}

type reportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo creates a new ReportRepository.
func NewReportRepo(pool *pgxpool.Pool) ReportRepository {
	return &reportRepo{pool: pool}
}

func (r *reportRepo) CreateReport(ctx context.Context, rep *model.Report) error {
	const q = `
        INSERT INTO reports (id, user_id, report_type, query, payload)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `
	rep.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, q, rep.ID, rep.UserID, rep.Type, rep.Query, []byte(rep.Payload)).Scan(&rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating report for user %s: %w: %w", rep.UserID, ErrStoreUnavailable, err)
	}
	return nil
}

func (r *reportRepo) GetReportByID(ctx context.Context, id string) (*model.Report, error) {
	const q = `SELECT id, user_id, report_type, query, payload, created_at FROM reports WHERE id = $1`
	var rep model.Report
	var payload []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&rep.ID, &rep.UserID, &rep.Type, &rep.Query, &payload, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("fetching report %s: %w: %w", id, ErrStoreUnavailable, err)
	}
	rep.Payload = payload
	return &rep, nil
}

func (r *reportRepo) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	const q = `
        SELECT id, user_id, report_type, query, payload, created_at
        FROM reports
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listing reports for user %s: %w: %w", userID, ErrStoreUnavailable, err)
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		var rep model.Report
		var payload []byte
		if err := rows.Scan(&rep.ID, &rep.UserID, &rep.Type, &rep.Query, &payload, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		rep.Payload = payload
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing reports for user %s: %w: %w", userID, ErrStoreUnavailable, err)
	}
	return reports, nil
}

// DeleteReport is scoped to the owning user so one user can never delete
// another's documents.
func (r *reportRepo) DeleteReport(ctx context.Context, id, userID string) error {
	const q = `DELETE FROM reports WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("deleting report %s: %w: %w", id, ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting report %s: %w", id, ErrReportNotFound)
	}
	return nil
}
