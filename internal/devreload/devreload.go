// Package devreload pushes a reload command to connected browsers when
// static assets change on disk. Development convenience only; it is off
// unless STATIC_WATCH is set.
package devreload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"
)

const debounce = 100 * time.Millisecond

// Watcher owns the filesystem watcher and the set of browser
// connections listening for reloads.
type Watcher struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*cws.Conn]struct{}
}

func New(dir string) *Watcher {
	return &Watcher{
		dir:    dir,
		logger: slog.Default().With("component", "devreload"),
		conns:  make(map[*cws.Conn]struct{}),
	}
}

// Run watches the static directory until ctx is done. Change bursts are
// debounced so an editor save triggers one reload, not five.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("Watching static assets", "dir", w.dir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.broadcast(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Static watcher error", "error", err)
		}
	}
}

// Handler upgrades a browser's reload listener connection.
func (w *Watcher) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := cws.Accept(c.Response(), c.Request(), &cws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return err
		}

		w.mu.Lock()
		w.conns[conn] = struct{}{}
		w.mu.Unlock()

		defer func() {
			w.mu.Lock()
			delete(w.conns, conn)
			w.mu.Unlock()
			conn.Close(cws.StatusNormalClosure, "")
		}()

		// Browsers never send anything here; the read just notices the
		// connection going away.
		ctx := c.Request().Context()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return nil
			}
		}
	}
}

func (w *Watcher) broadcast(ctx context.Context) {
	w.mu.Lock()
	conns := make([]*cws.Conn, 0, len(w.conns))
	for conn := range w.conns {
		conns = append(conns, conn)
	}
	w.mu.Unlock()

	w.logger.Info("Static assets changed, reloading clients", "clients", len(conns))
	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, time.Second)
		if err := conn.Write(writeCtx, cws.MessageText, []byte("reload")); err != nil {
			w.logger.Warn("Failed to push reload", "error", err)
		}
		cancel()
	}
}
