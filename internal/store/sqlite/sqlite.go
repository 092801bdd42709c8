// Package sqlite is the optional persistence adapter behind the same
// LedgerStore interface as the in-memory store. It exists so the
// volatile default can be swapped without touching the engine.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ventas/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// NextID bumps the persisted sequence. Identifiers survive restarts and
// are never reused, including after deletion.
func (r *Repository) NextID(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin id tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE id_seq SET value = value + 1 WHERE name = 'sales'`); err != nil {
		return 0, fmt.Errorf("bump id sequence: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM id_seq WHERE name = 'sales'`).Scan(&id); err != nil {
		return 0, fmt.Errorf("read id sequence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit id tx: %w", err)
	}
	return id, nil
}

func (r *Repository) Insert(ctx context.Context, s *core.Sale) error {
	cats, err := json.Marshal(s.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	closeYear, closeMonth := closePeriodColumns(s)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, client, total_cents, paid_cents, categories, sale_date, created_at, in_stats, close_year, close_month)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Client, s.Total.Cents, s.Paid.Cents, string(cats),
		s.SaleDate.String(), s.CreatedAt.UTC().Format(time.RFC3339), boolInt(s.InStats), closeYear, closeMonth)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	if err := insertPayments(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}

	slog.DebugContext(ctx, "Sale saved to sqlite", "id", s.ID, "client", s.Client)
	return nil
}

func (r *Repository) Update(ctx context.Context, s *core.Sale) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback()

	closeYear, closeMonth := closePeriodColumns(s)
	_, err = tx.ExecContext(ctx, `
		UPDATE sales SET paid_cents = ?, in_stats = ?, close_year = ?, close_month = ?
		WHERE id = ?`,
		s.Paid.Cents, boolInt(s.InStats), closeYear, closeMonth, s.ID)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	if err := insertPayments(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete sale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete sale rows: %w", err)
	}
	if n > 0 {
		// Payment rows cascade, but older sqlite builds may have foreign
		// keys off; sweep explicitly in the same transaction.
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE sale_id = ?`, id); err != nil {
			return false, fmt.Errorf("delete payments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete tx: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*core.Sale, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, client, total_cents, paid_cents, categories, sale_date, created_at, in_stats, close_year, close_month
		FROM sales WHERE id = ?`, id)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *Repository) All(ctx context.Context) ([]*core.Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client, total_cents, paid_cents, categories, sale_date, created_at, in_stats, close_year, close_month
		FROM sales ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []*core.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	for _, sale := range sales {
		if err := r.loadPayments(ctx, sale); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

// AppendAuditEvent records a domain event in the durable audit trail.
// Used by the worker, not by the engine.
func (r *Repository) AppendAuditEvent(ctx context.Context, eventType string, saleID int64, at time.Time, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (type, sale_id, at, payload) VALUES (?, ?, ?, ?)`,
		eventType, saleID, at.UTC().Format(time.RFC3339), string(payload))
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (r *Repository) loadPayments(ctx context.Context, sale *core.Sale) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, amount_cents, at, kind FROM payments WHERE sale_id = ? ORDER BY seq`, sale.ID)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p  core.Payment
			at string
		)
		if err := rows.Scan(&p.Seq, &p.Amount.Cents, &at, &p.Kind); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("parse payment time: %w", err)
		}
		p.At = ts
		sale.Payments = append(sale.Payments, p)
	}
	return rows.Err()
}

func insertPayments(ctx context.Context, tx *sql.Tx, s *core.Sale) error {
	// Payments are append-only; existing rows are left untouched.
	for _, p := range s.Payments {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO payments (sale_id, seq, amount_cents, at, kind)
			VALUES (?, ?, ?, ?, ?)`,
			s.ID, p.Seq, p.Amount.Cents, p.At.UTC().Format(time.RFC3339), p.Kind)
		if err != nil {
			return fmt.Errorf("insert payment %d/%d: %w", s.ID, p.Seq, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSale(row scanner) (*core.Sale, error) {
	var (
		sale       core.Sale
		cats       string
		saleDate   string
		createdAt  string
		inStats    int
		closeYear  sql.NullInt64
		closeMonth sql.NullInt64
	)
	err := row.Scan(&sale.ID, &sale.Client, &sale.Total.Cents, &sale.Paid.Cents,
		&cats, &saleDate, &createdAt, &inStats, &closeYear, &closeMonth)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cats), &sale.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	d, err := core.ParseDate(saleDate)
	if err != nil {
		return nil, fmt.Errorf("parse sale date: %w", err)
	}
	sale.SaleDate = d
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created at: %w", err)
	}
	sale.CreatedAt = ts
	sale.InStats = inStats != 0
	if closeYear.Valid && closeMonth.Valid {
		sale.ClosePeriod = &core.Period{Year: int(closeYear.Int64), Month: time.Month(closeMonth.Int64)}
	}
	return &sale, nil
}

func closePeriodColumns(s *core.Sale) (sql.NullInt64, sql.NullInt64) {
	if s.ClosePeriod == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(s.ClosePeriod.Year), Valid: true},
		sql.NullInt64{Int64: int64(s.ClosePeriod.Month), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
