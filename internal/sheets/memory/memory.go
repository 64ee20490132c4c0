// Package memory is a ChangeLog kept in process, used when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"tripledger/internal/amqp"
	"tripledger/internal/sheets"
)

type Log struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.ChangeLog = (*Log)(nil)

func New() *Log {
	return &Log{}
}

func (l *Log) Append(_ context.Context, ev amqp.ChangeEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, sheets.Row(ev))
	return nil
}

// Rows returns a copy of everything appended so far.
func (l *Log) Rows() [][]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]any(nil), l.rows...)
}
