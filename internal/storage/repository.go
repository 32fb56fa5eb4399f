// Package storage provides durable repositories for the expense, vehicle
// and document collections. Two backends exist: a JSON file store that
// replaces whole collections on every mutation, and a SQLite store.
package storage

import (
	"context"
	"errors"

	"autocare/internal/core"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("duplicate record id")
)

// Repository is the durable store consumed by the services layer.
// Implementations must preserve insertion order when listing.
type Repository interface {
	ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	AddExpense(ctx context.Context, e core.ExpenseRecord) error
	UpdateExpense(ctx context.Context, e core.ExpenseRecord) error
	DeleteExpense(ctx context.Context, id string) error

	Vehicle(ctx context.Context) (core.VehicleProfile, error)
	SaveVehicle(ctx context.Context, v core.VehicleProfile) error

	ListDocuments(ctx context.Context) ([]core.DocumentRecord, error)
	AddDocument(ctx context.Context, d core.DocumentRecord) error
	DeleteDocument(ctx context.Context, id string) error

	Close() error
}

// DefaultVehicle is the profile used before the user fills in their own.
func DefaultVehicle() core.VehicleProfile {
	return core.VehicleProfile{Brand: "My", Model: "Car", Year: "-", Plate: "-", VIN: "-"}
}
