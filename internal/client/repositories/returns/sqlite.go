package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/dbx"
)

const columns = `id, tax_year, status, income, deductions, tax_owed, withholdings, refund_amount, amount_owed, created_at`

var _ Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, records []models.TaxReturn) error {
	if err := r.Clear(ctx); err != nil {
		return err
	}

	query := `INSERT INTO tax_returns (position, ` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET position = excluded.position`
	for i, t := range records {
		_, err := r.db.ExecContext(ctx, query,
			i, t.ID, t.TaxYear, string(t.Status), t.Income, t.Deductions, t.TaxOwed,
			t.Withholdings, t.RefundAmount, t.AmountOwed, t.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert tax return %s: %w", t.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.TaxReturn, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM tax_returns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select tax returns: %w", err)
	}
	defer rows.Close()

	var result []models.TaxReturn
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax returns: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tax_returns`); err != nil {
		return fmt.Errorf("clear tax returns: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.TaxReturn, error) {
	var (
		t         models.TaxReturn
		status    string
		createdAt string
	)
	err := s.Scan(&t.ID, &t.TaxYear, &status, &t.Income, &t.Deductions, &t.TaxOwed,
		&t.Withholdings, &t.RefundAmount, &t.AmountOwed, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan tax return: %w", err)
	}

	t.Status = models.ReturnStatus(status)
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", t.ID, err)
	}
	return &t, nil
}
