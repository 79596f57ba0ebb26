// Package session owns one effective content document for the lifetime of
// an editor or viewer. It loads the baseline, merges the persisted override
// over it, applies edits in memory and persists them only on Save.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/folio/internal/baseline"
	"github.com/rcliao/folio/internal/content"
	"github.com/rcliao/folio/internal/model"
	"github.com/rcliao/folio/internal/notify"
	"github.com/rcliao/folio/internal/store"
)

// Options configures a Session. Source, Store and Slot are required.
type Options struct {
	Source  baseline.Source
	Store   store.Store
	Slot    string
	Channel notify.Channel // nil disables update signals
	Policy  content.MergePolicy
	Editor  *content.Editor
	Logger  *zap.Logger
}

// Session is safe for concurrent use; a viewer reloads from the
// notification goroutine while requests read the document.
type Session struct {
	source  baseline.Source
	store   store.Store
	slot    string
	channel notify.Channel
	policy  content.MergePolicy
	editor  *content.Editor
	logger  *zap.Logger

	mu          sync.RWMutex
	doc         *content.Document
	version     int
	dirty       bool
	overrideErr error
}

// New validates opts and returns an unloaded session.
func New(opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("session: baseline source is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	if opts.Slot == "" {
		return nil, fmt.Errorf("session: slot is required")
	}
	if opts.Editor == nil {
		opts.Editor = content.NewEditor()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{
		source:  opts.Source,
		store:   opts.Store,
		slot:    opts.Slot,
		channel: opts.Channel,
		policy:  opts.Policy,
		editor:  opts.Editor,
		logger:  opts.Logger.With(zap.String("slot", opts.Slot)),
	}, nil
}

// Load fetches the baseline, reads the latest override and merges them.
// Unsaved edits are discarded. On error the previous document is kept.
func (s *Session) Load(ctx context.Context) error {
	st, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.install(st)
	s.mu.Unlock()
	return nil
}

// LoadIfClean is Load that gives up, returning false, when the session has
// unsaved edits at the moment the new document would be installed.
func (s *Session) LoadIfClean(ctx context.Context) (bool, error) {
	st, err := s.fetch(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		return false, nil
	}
	s.install(st)
	return true, nil
}

type loaded struct {
	doc         *content.Document
	version     int
	overrideErr error
}

func (s *Session) fetch(ctx context.Context) (*loaded, error) {
	raw, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, &LoadError{Location: s.source.Location(), Err: err}
	}
	base, err := content.Parse(raw)
	if err != nil {
		return nil, &LoadError{Location: s.source.Location(), Err: err}
	}

	st := &loaded{}
	var override *content.Document
	snap, err := s.store.Load(ctx, store.LoadParams{Slot: s.slot})
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, &LoadError{Location: "slot " + s.slot, Err: err}
	default:
		st.version = snap.Version
		override, err = content.Parse(snap.Data)
		if err != nil {
			st.overrideErr = &OverrideParseError{Slot: s.slot, Version: snap.Version, Err: err}
			s.logger.Warn("discarding malformed override",
				zap.Int("version", snap.Version), zap.Error(err))
			override = nil
		}
	}
	st.doc = content.Merge(base, override, s.policy)

	s.logger.Debug("document loaded",
		zap.String("baseline", s.source.Location()),
		zap.Int("version", st.version),
		zap.Stringer("policy", s.policy))
	return st, nil
}

// install swaps in a freshly loaded document. Callers hold mu.
func (s *Session) install(st *loaded) {
	s.doc = st.doc
	s.version = st.version
	s.dirty = false
	s.overrideErr = st.overrideErr
}

// Document returns a copy of the effective document, or nil before Load.
func (s *Session) Document() *content.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

// OverrideErr reports the *OverrideParseError from the last Load, if any.
func (s *Session) OverrideErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrideErr
}

// Version is the override version the document was loaded from or last
// saved as. Zero means the document is the baseline alone.
func (s *Session) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Dirty reports whether there are edits since the last Load or Save.
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Policy returns the merge policy used by Load.
func (s *Session) Policy() content.MergePolicy { return s.policy }

// Get returns a copy of the value at p.
func (s *Session) Get(p content.Path) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	v, err := s.doc.Get(p)
	if err != nil {
		return nil, err
	}
	return content.Clone(v), nil
}

// Set assigns v at p.
func (s *Session) Set(p content.Path, v any) error {
	return s.mutate(func(doc *content.Document) error {
		return doc.Set(p, v)
	})
}

// AddItem appends a default record of kind to the array at p.
func (s *Session) AddItem(p content.Path, kind content.ItemKind) (int, error) {
	idx := -1
	err := s.mutate(func(doc *content.Document) error {
		var err error
		idx, err = s.editor.AddItem(doc, p, kind)
		return err
	})
	return idx, err
}

// RemoveItem deletes element index of the array at p.
func (s *Session) RemoveItem(p content.Path, index int) error {
	return s.mutate(func(doc *content.Document) error {
		return s.editor.RemoveItem(doc, p, index)
	})
}

func (s *Session) mutate(fn func(*content.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotLoaded
	}
	if err := fn(s.doc); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Save writes the whole effective document as the new override and then
// signals other sessions. A failed write leaves the previous override in
// place and sends no signal.
func (s *Session) Save(ctx context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	data, err := s.doc.MarshalJSON()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("encode document: %w", err)
	}
	snap, err := s.store.Save(ctx, store.SaveParams{Slot: s.slot, Data: data})
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save override: %w", err)
	}
	s.version = snap.Version
	s.dirty = false
	s.mu.Unlock()

	s.logger.Info("override saved", zap.Int("version", snap.Version), zap.Int("bytes", snap.Size))
	s.publish(ctx)
	return snap, nil
}

// Reset deletes every saved version of the override and reloads the
// baseline. It returns how many versions were removed.
func (s *Session) Reset(ctx context.Context) (int, error) {
	n, err := s.store.Delete(ctx, s.slot)
	if err != nil {
		return 0, fmt.Errorf("delete override: %w", err)
	}
	s.logger.Info("override reset", zap.Int("versions", n))
	if err := s.Load(ctx); err != nil {
		return n, err
	}
	s.publish(ctx)
	return n, nil
}

// Restore makes an earlier saved version the current override and reloads.
func (s *Session) Restore(ctx context.Context, version int) (*model.Snapshot, error) {
	snap, err := s.store.Restore(ctx, s.slot, version)
	if err != nil {
		return nil, fmt.Errorf("restore override: %w", err)
	}
	s.logger.Info("override restored", zap.Int("from", version), zap.Int("version", snap.Version))
	if err := s.Load(ctx); err != nil {
		return snap, err
	}
	s.publish(ctx)
	return snap, nil
}

// Export writes the effective document, pretty-printed, to w. It is
// loadable as a baseline or an override.
func (s *Session) Export(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return ErrNotLoaded
	}
	return s.doc.Encode(w)
}

// ExportBytes is Export into memory.
func (s *Session) ExportBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Export(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import replaces the effective document with data and saves it. Malformed
// data is rejected before anything changes.
func (s *Session) Import(ctx context.Context, data []byte) (*model.Snapshot, error) {
	doc, err := content.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	s.mu.Lock()
	prev, prevDirty := s.doc, s.dirty
	s.doc = doc
	s.dirty = true
	s.mu.Unlock()

	snap, err := s.Save(ctx)
	if err != nil {
		s.mu.Lock()
		s.doc, s.dirty = prev, prevDirty
		s.mu.Unlock()
		return nil, err
	}
	return snap, nil
}

// OnExternalUpdate calls fn whenever another session saves. The session
// does not reload by itself; fn decides what to do.
func (s *Session) OnExternalUpdate(fn func()) (cancel func(), err error) {
	if s.channel == nil {
		return nil, fmt.Errorf("session: no update channel configured")
	}
	return s.channel.Subscribe(fn)
}

// ReloadOnUpdate subscribes a handler that reloads the document after each
// external save. Reload failures are logged and the old document kept.
func (s *Session) ReloadOnUpdate(ctx context.Context, after func()) (cancel func(), err error) {
	return s.OnExternalUpdate(func() {
		if err := s.Load(ctx); err != nil {
			s.logger.Error("reload after update", zap.Error(err))
			return
		}
		s.logger.Info("reloaded after external update", zap.Int("version", s.Version()))
		if after != nil {
			after()
		}
	})
}

func (s *Session) publish(ctx context.Context) {
	if s.channel == nil {
		return
	}
	if err := s.channel.Publish(ctx); err != nil {
		s.logger.Warn("update signal not delivered", zap.Error(err))
	}
}
