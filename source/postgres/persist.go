package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// LastErrorWriter persists a source's last error. *Store implements it.
type LastErrorWriter interface {
	SaveLastError(ctx context.Context, id uint64, msg string) error
}

type persistedSource struct {
	source.Source

	// mu serializes SetLastError so the stored value follows the order of
	// in-memory updates.
	mu      sync.Mutex
	writer  LastErrorWriter
	logger  core.Logger
	timeout time.Duration
}

// Persist wraps src so that every change of its last error is written
// through w. Writes of an unchanged message are skipped.
func Persist(src source.Source, w LastErrorWriter, logger core.Logger) source.Source {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &persistedSource{Source: src, writer: w, logger: logger, timeout: 5 * time.Second}
}

func (p *persistedSource) SetLastError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Source.LastError() == msg {
		return
	}
	p.Source.SetLastError(msg)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.writer.SaveLastError(ctx, p.ID(), msg); err != nil {
		p.logger.Error("persist last error failed",
			core.F("source", p.ID()),
			core.F("error", err),
		)
	}
}
