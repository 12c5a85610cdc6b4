package history

import (
	"context"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/anuja/internal/model"
)

// Writer incapsula WriteAPI e traccia l'ultimo errore di scrittura per /healthz.
type Writer struct {
	api     api.WriteAPI
	log     *zap.SugaredLogger
	mu      sync.RWMutex
	lastErr time.Time
	written int64
	done    chan struct{}
}

// NewWriter starts draining the async error channel of w.
func NewWriter(w api.WriteAPI, log *zap.SugaredLogger) *Writer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ww := &Writer{
		api:     w,
		log:     log,
		lastErr: time.Now().Add(-24 * time.Hour), // di default "lontano nel tempo"
		done:    make(chan struct{}),
	}
	go func() {
		defer close(ww.done)
		for err := range w.Errors() {
			if err != nil {
				ww.markError()
				ww.log.Warnf("history: influx write error: %v", err)
			}
		}
	}()
	return ww
}

func (w *Writer) markError() {
	w.mu.Lock()
	w.lastErr = time.Now()
	w.mu.Unlock()
}

// Record implements advisor.Sink. Writes are batched; errors surface asynchronously.
func (w *Writer) Record(_ context.Context, evt model.AdvisoryIssuedEvent) error {
	w.api.WritePoint(EventToPoint(evt))
	w.mu.Lock()
	w.written++
	w.mu.Unlock()
	return nil
}

// Flush forces pending points out.
func (w *Writer) Flush() { w.api.Flush() }

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

func (w *Writer) Written() int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}
