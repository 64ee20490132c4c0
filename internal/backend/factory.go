package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tripledger/internal/amqp"
	gsheet "tripledger/internal/sheets/google"
	sheetmem "tripledger/internal/sheets/memory"
	"tripledger/internal/storage/memory"
	"tripledger/internal/storage/sqlite"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		store := memory.New()
		f.logger.WarnContext(ctx, "Initialized memory backend, data is lost on restart")
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreatePublisher connects to the broker when AMQP is configured. A broker
// that cannot be reached is logged and events are disabled.
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) (*PublisherResult, error) {
	if !config.EventsEnabled() {
		f.logger.InfoContext(ctx, "AMQP not configured, change events disabled")
		return &PublisherResult{Cleanup: noop}, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
		return &PublisherResult{Cleanup: noop}, nil
	}

	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return &PublisherResult{Publisher: client, Cleanup: client.Close}, nil
}

// CreateChangeLog returns the Google Sheets log when a spreadsheet is
// configured and an in-memory log otherwise.
func (f *DefaultFactory) CreateChangeLog(ctx context.Context, config Config) (*ChangeLogResult, error) {
	if !config.SheetsEnabled() {
		f.logger.WarnContext(ctx, "Google Sheets not configured, exporting to memory")
		return &ChangeLogResult{Log: sheetmem.New(), Cleanup: noop}, nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleServiceAccountFile,
		CredentialsJSON: config.GoogleServiceAccountJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets change log", "sheet", config.GoogleSheetName)
	return &ChangeLogResult{Log: client, Cleanup: noop}, nil
}

func noop() error { return nil }
