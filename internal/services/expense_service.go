// Package services orchestrates the storage layer with the optional AMQP
// publisher. Handlers talk to this layer instead of the repositories so
// that ID generation, validation and event publishing live in one place.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"autocare/internal/amqp"
	"autocare/internal/core"
	"autocare/internal/storage"
)

// ExpenseService coordinates expense, vehicle and document operations
// across storage and AMQP.
type ExpenseService struct {
	storage    storage.Repository
	amqpClient *amqp.Client
}

func NewExpenseService(storage storage.Repository, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	return s.storage.ListExpenses(ctx)
}

// CreateExpense validates the record, assigns it a fresh ID, saves it and
// publishes a created event.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	e.ID = uuid.NewString()
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	// Save locally first; the event is best effort.
	if err := s.storage.AddExpense(ctx, e); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishEvent(ctx, e.ID, amqp.ActionCreated)
	return e, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.ExpenseRecord) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publishEvent(ctx, e.ID, amqp.ActionUpdated)
	return nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publishEvent(ctx, id, amqp.ActionDeleted)
	return nil
}

func (s *ExpenseService) Vehicle(ctx context.Context) (core.VehicleProfile, error) {
	return s.storage.Vehicle(ctx)
}

func (s *ExpenseService) SaveVehicle(ctx context.Context, v core.VehicleProfile) error {
	if err := s.storage.SaveVehicle(ctx, v); err != nil {
		return fmt.Errorf("save vehicle: %w", err)
	}
	return nil
}

func (s *ExpenseService) ListDocuments(ctx context.Context) ([]core.DocumentRecord, error) {
	return s.storage.ListDocuments(ctx)
}

func (s *ExpenseService) CreateDocument(ctx context.Context, d core.DocumentRecord) (core.DocumentRecord, error) {
	d.ID = uuid.NewString()
	if err := d.Validate(); err != nil {
		return core.DocumentRecord{}, err
	}

	if err := s.storage.AddDocument(ctx, d); err != nil {
		return core.DocumentRecord{}, fmt.Errorf("save document: %w", err)
	}
	return d, nil
}

func (s *ExpenseService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// publishEvent never fails the caller: the mutation already succeeded
// locally and the event stream is advisory.
func (s *ExpenseService) publishEvent(ctx context.Context, id, action string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping expense event")
		return
	}

	if err := s.amqpClient.PublishExpenseEvent(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"id", id, "action", action, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
