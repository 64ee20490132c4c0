// Package backend builds the store, event publisher and change log selected
// by configuration.
package backend

import (
	"context"

	"tripledger/internal/services"
	"tripledger/internal/sheets"
	"tripledger/internal/storage"
)

// CleanupFunc releases a resource created by the factory.
type CleanupFunc func() error

type StoreResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// PublisherResult holds a nil Publisher when change events are disabled.
type PublisherResult struct {
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type ChangeLogResult struct {
	Log     sheets.ChangeLog
	Cleanup CleanupFunc
}

type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreatePublisher(ctx context.Context, config Config) (*PublisherResult, error)
	CreateChangeLog(ctx context.Context, config Config) (*ChangeLogResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
