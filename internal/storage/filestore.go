package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"autocare/internal/core"
)

// File names under the data directory, one durable key per collection.
const (
	expensesFile  = "expenses.json"
	vehicleFile   = "vehicle.json"
	documentsFile = "documents.json"
)

// FileRepository persists each collection as a single JSON file and
// replaces the whole file on every mutation. Collections are held in
// memory between mutations; a RWMutex covers concurrent handler access.
type FileRepository struct {
	mu        sync.RWMutex
	dir       string
	expenses  []core.ExpenseRecord
	vehicle   core.VehicleProfile
	documents []core.DocumentRecord
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	r := &FileRepository{dir: dir, vehicle: DefaultVehicle()}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepository) load() error {
	if err := readJSONFile(filepath.Join(r.dir, expensesFile), &r.expenses); err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	if err := readJSONFile(filepath.Join(r.dir, vehicleFile), &r.vehicle); err != nil {
		return fmt.Errorf("load vehicle: %w", err)
	}
	if err := readJSONFile(filepath.Join(r.dir, documentsFile), &r.documents); err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	return nil
}

// readJSONFile decodes into v; a missing file leaves v untouched.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (r *FileRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.ExpenseRecord, len(r.expenses))
	copy(out, r.expenses)
	return out, nil
}

func (r *FileRepository) AddExpense(ctx context.Context, e core.ExpenseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.expenses {
		if existing.ID == e.ID {
			return ErrDuplicateID
		}
	}
	r.expenses = append(r.expenses, e)
	if err := writeJSONFile(filepath.Join(r.dir, expensesFile), r.expenses); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date.String())
	return nil
}

// UpdateExpense replaces the record with the same id wholesale.
func (r *FileRepository) UpdateExpense(ctx context.Context, e core.ExpenseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.expenses {
		if existing.ID == e.ID {
			r.expenses[i] = e
			return writeJSONFile(filepath.Join(r.dir, expensesFile), r.expenses)
		}
	}
	return ErrNotFound
}

func (r *FileRepository) DeleteExpense(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.expenses {
		if existing.ID == id {
			r.expenses = append(r.expenses[:i], r.expenses[i+1:]...)
			return writeJSONFile(filepath.Join(r.dir, expensesFile), r.expenses)
		}
	}
	return ErrNotFound
}

func (r *FileRepository) Vehicle(ctx context.Context) (core.VehicleProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vehicle, nil
}

func (r *FileRepository) SaveVehicle(ctx context.Context, v core.VehicleProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vehicle = v
	return writeJSONFile(filepath.Join(r.dir, vehicleFile), r.vehicle)
}

func (r *FileRepository) ListDocuments(ctx context.Context) ([]core.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.DocumentRecord, len(r.documents))
	copy(out, r.documents)
	return out, nil
}

func (r *FileRepository) AddDocument(ctx context.Context, d core.DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.documents {
		if existing.ID == d.ID {
			return ErrDuplicateID
		}
	}
	r.documents = append(r.documents, d)
	return writeJSONFile(filepath.Join(r.dir, documentsFile), r.documents)
}

func (r *FileRepository) DeleteDocument(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.documents {
		if existing.ID == id {
			r.documents = append(r.documents[:i], r.documents[i+1:]...)
			return writeJSONFile(filepath.Join(r.dir, documentsFile), r.documents)
		}
	}
	return ErrNotFound
}

func (r *FileRepository) Close() error {
	return nil
}
