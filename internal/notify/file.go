package notify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const defaultDebounce = 50 * time.Millisecond

// FileChannel signals sessions in other processes through a file named
// <name>.signal. Publishing atomically replaces the file; subscribers watch
// the directory with fsnotify.
type FileChannel struct {
	dir      string
	name     string
	path     string
	origin   string
	debounce time.Duration
	logger   *zap.Logger
}

// FileOption configures a FileChannel.
type FileOption func(*FileChannel)

// WithLogger sets the logger used for watcher errors.
func WithLogger(l *zap.Logger) FileOption {
	return func(c *FileChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDebounce collapses bursts of file events into one callback.
func WithDebounce(d time.Duration) FileOption {
	return func(c *FileChannel) {
		c.debounce = d
	}
}

// NewFileChannel creates dir if needed and returns a channel named name.
func NewFileChannel(dir, name string, opts ...FileOption) (*FileChannel, error) {
	if name == "" {
		return nil, fmt.Errorf("channel name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create channel dir: %w", err)
	}
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	c := &FileChannel{
		dir:      dir,
		name:     name,
		path:     filepath.Join(dir, name+".signal"),
		origin:   ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the channel name.
func (c *FileChannel) Name() string { return c.name }

// Publish replaces the signal file with this channel's origin and the update message.
func (c *FileChannel) Publish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, "."+c.name+".*")
	if err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "%s\n%s\n", c.origin, UpdateMessage); err != nil {
		tmp.Close()
		return fmt.Errorf("write signal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close signal: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Subscribe watches for signals from other channels until cancel is called.
// cancel blocks until the watcher goroutine and any pending callback have
// exited; fn is never called after cancel returns.
func (c *FileChannel) Subscribe(fn func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.dir, err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.watchLoop(watcher, done, &wg, fn)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			watcher.Close()
			wg.Wait()
		})
	}, nil
}

// watchLoop adds to wg for every scheduled callback. A stopped timer
// releases its count here; a fired one releases it when fn returns.
func (c *FileChannel) watchLoop(watcher *fsnotify.Watcher, done <-chan struct{}, wg *sync.WaitGroup, fn func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop := func() {
		if timer != nil && timer.Stop() {
			wg.Done()
		}
	}
	defer func() {
		mu.Lock()
		stop()
		mu.Unlock()
	}()

	for {
		select {
		case <-done:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != c.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !c.fromOther() {
				continue
			}

			if c.debounce <= 0 {
				fn()
				continue
			}
			mu.Lock()
			stop()
			wg.Add(1)
			timer = time.AfterFunc(c.debounce, func() {
				defer wg.Done()
				select {
				case <-done:
				default:
					fn()
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("signal watcher error", zap.String("channel", c.name), zap.Error(err))
		}
	}
}

// fromOther reports whether the current signal was written by another channel.
func (c *FileChannel) fromOther() bool {
	data, err := os.ReadFile(c.path)
	if err != nil {
		c.logger.Debug("read signal", zap.String("channel", c.name), zap.Error(err))
		return false
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return false
	}
	origin := sc.Text()
	if !sc.Scan() || sc.Text() != UpdateMessage {
		return false
	}
	return origin != c.origin
}
