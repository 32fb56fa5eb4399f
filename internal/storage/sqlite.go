package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"autocare/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListExpenses returns all expenses in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, amount, category, description, mileage FROM expenses ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.ExpenseRecord
	for rows.Next() {
		var (
			e       core.ExpenseRecord
			date    string
			mileage sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &date, &e.Amount, &e.Category, &e.Description, &mileage); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", date, err)
		}
		if mileage.Valid {
			m := int(mileage.Int64)
			e.Mileage = &m
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.ExpenseRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, date, amount, category, description, mileage) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Amount, e.Category, e.Description, mileageValue(e.Mileage))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date.String())
	return nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.ExpenseRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount = ?, category = ?, description = ?, mileage = ? WHERE id = ?`,
		e.Date.String(), e.Amount, e.Category, e.Description, mileageValue(e.Mileage), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) Vehicle(ctx context.Context) (core.VehicleProfile, error) {
	var v core.VehicleProfile
	err := r.db.QueryRowContext(ctx,
		`SELECT brand, model, year, plate, vin, photo FROM vehicle WHERE id = 1`).
		Scan(&v.Brand, &v.Model, &v.Year, &v.Plate, &v.VIN, &v.Photo)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultVehicle(), nil
	}
	if err != nil {
		return core.VehicleProfile{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) SaveVehicle(ctx context.Context, v core.VehicleProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicle (id, brand, model, year, plate, vin, photo) VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET brand = excluded.brand, model = excluded.model,
		 year = excluded.year, plate = excluded.plate, vin = excluded.vin, photo = excluded.photo`,
		v.Brand, v.Model, v.Year, v.Plate, v.VIN, v.Photo)
	if err != nil {
		return fmt.Errorf("save vehicle: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDocuments(ctx context.Context) ([]core.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, image, expiry_date FROM documents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []core.DocumentRecord
	for rows.Next() {
		var (
			d      core.DocumentRecord
			expiry sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Image, &expiry); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if expiry.Valid && expiry.String != "" {
			d.ExpiryDate, err = core.ParseDate(expiry.String)
			if err != nil {
				return nil, fmt.Errorf("parse document expiry %q: %w", expiry.String, err)
			}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *SQLiteRepository) AddDocument(ctx context.Context, d core.DocumentRecord) error {
	var expiry any
	if !d.ExpiryDate.IsZero() {
		expiry = d.ExpiryDate.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, image, expiry_date) VALUES (?, ?, ?, ?)`,
		d.ID, d.Title, d.Image, expiry)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res)
}

func mileageValue(m *int) any {
	if m == nil {
		return nil
	}
	return *m
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
