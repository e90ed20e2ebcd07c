package main

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
)

// CaptureRecord is one row of the session ledger: a completed capture
// cycle and how it went. The post-processing side reads the ledger to
// pair capture directories with their recording parameters.
type CaptureRecord struct {
	CaptureID  int64  `parquet:"capture_id"`
	Directory  string `parquet:"directory"`
	StartedAt  int64  `parquet:"started_at_ms"`
	DurationMs int64  `parquet:"duration_ms"`
	Status     int32  `parquet:"status"`
}

// Ledger appends one parquet row per capture cycle. The effective device
// configuration is embedded in the file metadata as JSON so a ledger is
// self-describing without the .mmwave.json files next to it.
type Ledger struct {
	mu     sync.Mutex
	file   *os.File
	writer *parquet.GenericWriter[CaptureRecord]
}

func NewLedger(path string, cfg *DevConfig) (*Ledger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	configStr := "{}"
	if b, err := json.Marshal(buildExportDoc(cfg, 1)); err == nil {
		configStr = string(b)
	}

	w := parquet.NewGenericWriter[CaptureRecord](f,
		parquet.KeyValueMetadata("config", configStr),
	)
	return &Ledger{file: f, writer: w}, nil
}

// Append writes the row for a finished session and flushes it so a crash
// loses at most the current cycle.
func (l *Ledger) Append(sess *CaptureSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := CaptureRecord{
		CaptureID:  int64(sess.ID),
		Directory:  sess.Dir,
		StartedAt:  sess.Start.UnixMilli(),
		DurationMs: time.Since(sess.Start).Milliseconds(),
		Status:     int32(sess.Status),
	}
	if _, err := l.writer.Write([]CaptureRecord{rec}); err != nil {
		return err
	}
	return l.writer.Flush()
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Close(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
