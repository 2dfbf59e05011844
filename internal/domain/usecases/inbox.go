package usecases

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// UploadLoader describes a file on disk as an upload.
type UploadLoader interface {
	Load(ctx context.Context, path string) (entities.Upload, error)
}

// DefaultSettleDelay is how long a file must stay quiet before it is
// ingested. Copies into the inbox emit one create and several writes.
const DefaultSettleDelay = 500 * time.Millisecond

// Inbox ingests files dropped into a watched directory into the session
// carried by the context passed to Run.
type Inbox struct {
	watcher ports.FileWatcher
	loader  UploadLoader
	chat    *ChatService
	settle  time.Duration
	logger  *zap.Logger
}

// NewInbox creates an inbox runner.
func NewInbox(watcher ports.FileWatcher, loader UploadLoader, chat *ChatService, settle time.Duration, logger *zap.Logger) *Inbox {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		watcher: watcher,
		loader:  loader,
		chat:    chat,
		settle:  settle,
		logger:  logger.Named("inbox"),
	}
}

// Run processes watcher events for dir until ctx is done.
func (in *Inbox) Run(ctx context.Context, dir string) error {
	events, err := in.watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}

	deb := newDebouncer(in.settle)
	// On cancellation pending files are dropped; when the watcher closes
	// its channel they are still ingested.
	defer func() {
		if ctx.Err() != nil {
			deb.stop()
		}
		deb.wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Operation == ports.FileDeleted {
				deb.cancel(ev.Path)
				in.remove(ctx, ev.Path)
				continue
			}
			path := ev.Path
			deb.schedule(path, func() { in.ingest(ctx, path) })
		}
	}
}

// debouncer runs the call scheduled for a key once the key has been
// quiet for delay. Rescheduling a key restarts its timer.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*time.Timer)}
}

func (d *debouncer) schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduleLocked(key, fn)
}

func (d *debouncer) scheduleLocked(key string, fn func()) {
	d.cancelLocked(key)
	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		// a newer timer may have replaced this one while it waited
		if d.pending[key] == t {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		fn()
	})
	d.pending[key] = t
}

func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked(key)
}

func (d *debouncer) cancelLocked(key string) {
	t, ok := d.pending[key]
	if !ok {
		return
	}
	if t.Stop() {
		d.wg.Done()
	}
	delete(d.pending, key)
}

// stop drops every call that has not started yet.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.pending {
		d.cancelLocked(key)
	}
}

// wait blocks until every started or pending call has returned.
func (d *debouncer) wait() {
	d.wg.Wait()
}

func (in *Inbox) ingest(ctx context.Context, path string) {
	up, err := in.loader.Load(ctx, path)
	if err != nil {
		in.logger.Warn("cannot load file", zap.String("path", path), zap.Error(err))
		return
	}

	ext, err := in.chat.IngestFile(ctx, up)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			in.logger.Warn("file not ingested",
				zap.String("file", up.Name),
				zap.Int("status", reqErr.Status.Code()),
				zap.String("message", reqErr.Message))
			return
		}
		in.logger.Error("file not ingested", zap.String("file", up.Name), zap.Error(err))
		return
	}
	in.logger.Info("file ingested", zap.String("file", up.Name), zap.String("message", ext.Message))
}

func (in *Inbox) remove(ctx context.Context, path string) {
	name := filepath.Base(path)
	removed, err := in.chat.RemoveDocumentByName(ctx, name)
	if err != nil {
		in.logger.Error("file not removed", zap.String("file", name), zap.Error(err))
		return
	}
	if removed {
		in.logger.Info("file removed", zap.String("file", name))
	}
}
