package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/folio/internal/baseline"
	"github.com/rcliao/folio/internal/content"
	"github.com/rcliao/folio/internal/notify"
	"github.com/rcliao/folio/internal/store"
)

type fixture struct {
	store *store.SQLiteStore
	bus   *notify.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &fixture{store: s, bus: notify.NewBus()}
}

func (f *fixture) session(t *testing.T, base string, policy content.MergePolicy, opts ...content.EditorOption) *Session {
	t.Helper()
	s, err := New(Options{
		Source:  &baseline.Static{Name: "baseline", Data: []byte(base)},
		Store:   f.store,
		Slot:    "portfolioData",
		Channel: f.bus.Join(),
		Policy:  policy,
		Editor:  content.NewEditor(opts...),
		Logger:  zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func (f *fixture) loaded(t *testing.T, base string, policy content.MergePolicy, opts ...content.EditorOption) *Session {
	t.Helper()
	s := f.session(t, base, policy, opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func (f *fixture) persist(t *testing.T, data string) {
	t.Helper()
	if _, err := f.store.Save(context.Background(), store.SaveParams{Slot: "portfolioData", Data: []byte(data)}); err != nil {
		t.Fatalf("seed override: %v", err)
	}
}

func fixtureData(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "content", "testdata", "data.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func mustParse(t *testing.T, s string) *content.Document {
	t.Helper()
	d, err := content.Parse([]byte(s))
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func TestNewRequiresCollaborators(t *testing.T) {
	f := newFixture(t)
	src := &baseline.Static{Name: "b", Data: []byte(`{}`)}
	cases := []Options{
		{Store: f.store, Slot: "s"},
		{Source: src, Slot: "s"},
		{Source: src, Store: f.store},
	}
	for i, o := range cases {
		if _, err := New(o); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestLoadWithoutOverride(t *testing.T) {
	f := newFixture(t)
	base := fixtureData(t)
	s := f.loaded(t, base, content.ShallowOverlay)

	if diff := cmp.Diff(mustParse(t, base).Root(), s.Document().Root()); diff != "" {
		t.Errorf("document differs from baseline (-want +got):\n%s", diff)
	}
	if s.Version() != 0 || s.Dirty() || s.OverrideErr() != nil {
		t.Errorf("unexpected state version=%d dirty=%v err=%v", s.Version(), s.Dirty(), s.OverrideErr())
	}
}

func TestLoadPreservesNewMetaFields(t *testing.T) {
	f := newFixture(t)
	f.persist(t, `{"meta":{"a":9}}`)
	s := f.loaded(t, `{"meta":{"a":1,"b":2}}`, content.ShallowOverlay)

	want := map[string]any{"a": float64(9), "b": float64(2)}
	if diff := cmp.Diff(want, s.Document().Meta()); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
	if s.Version() != 1 {
		t.Errorf("expected version 1, got %d", s.Version())
	}
}

func TestLoadShallowDropsNestedBaselineFields(t *testing.T) {
	f := newFixture(t)
	f.persist(t, `{"en":{"hero":{"x":9}}}`)

	shallow := f.loaded(t, `{"en":{"hero":{"x":1,"y":2}}}`, content.ShallowOverlay)
	got, _ := shallow.Get(content.Path{}.Key("en").Key("hero"))
	if diff := cmp.Diff(map[string]any{"x": float64(9)}, got); diff != "" {
		t.Errorf("shallow hero (-want +got):\n%s", diff)
	}

	deep := f.loaded(t, `{"en":{"hero":{"x":1,"y":2}}}`, content.DeepMerge)
	got, _ = deep.Get(content.Path{}.Key("en").Key("hero"))
	if diff := cmp.Diff(map[string]any{"x": float64(9), "y": float64(2)}, got); diff != "" {
		t.Errorf("deep hero (-want +got):\n%s", diff)
	}
}

func TestLoadMalformedOverrideFallsBack(t *testing.T) {
	f := newFixture(t)
	f.persist(t, `{"meta":`)
	base := `{"meta":{"a":1}}`
	s := f.loaded(t, base, content.ShallowOverlay)

	var perr *OverrideParseError
	if !errors.As(s.OverrideErr(), &perr) {
		t.Fatalf("expected OverrideParseError, got %v", s.OverrideErr())
	}
	if perr.Slot != "portfolioData" || perr.Version != 1 {
		t.Errorf("unexpected error fields %+v", perr)
	}
	if !s.Document().Equal(mustParse(t, base)) {
		t.Error("expected baseline document after malformed override")
	}
}

func TestLoadBaselineFailure(t *testing.T) {
	f := newFixture(t)

	for _, src := range []baseline.Source{
		&baseline.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")},
		&baseline.Static{Name: "bad", Data: []byte(`[1,2]`)},
	} {
		s, _ := New(Options{Source: src, Store: f.store, Slot: "portfolioData"})
		err := s.Load(context.Background())
		var lerr *LoadError
		if !errors.As(err, &lerr) {
			t.Fatalf("expected LoadError, got %v", err)
		}
		if lerr.Location != src.Location() {
			t.Errorf("location = %q, want %q", lerr.Location, src.Location())
		}
		if s.Document() != nil {
			t.Error("failed load must not leave a document")
		}
		if err := s.Set(content.Path{}.Key("meta"), "x"); !errors.Is(err, ErrNotLoaded) {
			t.Errorf("expected ErrNotLoaded, got %v", err)
		}
	}
}

func TestLoadFailureKeepsPreviousDocument(t *testing.T) {
	f := newFixture(t)
	src := &baseline.Static{Name: "b", Data: []byte(`{"meta":{"a":1}}`)}
	s, _ := New(Options{Source: src, Store: f.store, Slot: "portfolioData"})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	src.Data = []byte(`not json`)
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if got := s.Document().Meta()["a"]; got != float64(1) {
		t.Errorf("previous document lost, meta.a = %v", got)
	}
}

func TestEditsPersistOnlyOnSave(t *testing.T) {
	f := newFixture(t)
	base := fixtureData(t)
	s := f.loaded(t, base, content.ShallowOverlay)

	title := content.Path{}.Key("en").Key("hero").Key("title")
	if err := s.Set(title, "John Roe"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !s.Dirty() {
		t.Error("expected dirty after set")
	}

	other := f.loaded(t, base, content.ShallowOverlay)
	if v, _ := other.Get(title); v != "Jane Doe" {
		t.Errorf("unsaved edit leaked: %v", v)
	}

	snap, err := s.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if snap.Version != 1 || s.Version() != 1 || s.Dirty() {
		t.Errorf("unexpected state after save: snap=%d version=%d dirty=%v", snap.Version, s.Version(), s.Dirty())
	}

	fresh := f.loaded(t, base, content.ShallowOverlay)
	if v, _ := fresh.Get(title); v != "John Roe" {
		t.Errorf("saved edit missing: %v", v)
	}
}

func TestSaveNotifiesOtherSessions(t *testing.T) {
	f := newFixture(t)
	base := fixtureData(t)
	editor := f.loaded(t, base, content.ShallowOverlay)
	viewer := f.loaded(t, base, content.ShallowOverlay)

	var editorCalls, viewerCalls int
	cancelE, _ := editor.OnExternalUpdate(func() { editorCalls++ })
	defer cancelE()
	reloaded := 0
	cancelV, err := viewer.ReloadOnUpdate(context.Background(), func() { reloaded++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancelV2, _ := viewer.OnExternalUpdate(func() { viewerCalls++ })
	defer cancelV2()

	title := content.Path{}.Key("en").Key("about").Key("title")
	editor.Set(title, "Who")
	if _, err := editor.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if editorCalls != 0 {
		t.Errorf("saving session notified itself %d times", editorCalls)
	}
	if viewerCalls != 1 || reloaded != 1 {
		t.Errorf("expected one notification and reload, got %d and %d", viewerCalls, reloaded)
	}
	if v, _ := viewer.Get(title); v != "Who" {
		t.Errorf("viewer did not reload, title = %v", v)
	}

	cancelV()
	editor.Set(title, "Again")
	editor.Save(context.Background())
	if reloaded != 1 {
		t.Errorf("cancelled reload still ran")
	}
}

func TestSaveFailureLeavesOverride(t *testing.T) {
	f := newFixture(t)
	f.persist(t, `{"meta":{"a":1}}`)
	s := f.loaded(t, `{"meta":{"a":0}}`, content.ShallowOverlay)

	notified := 0
	other := f.loaded(t, `{"meta":{"a":0}}`, content.ShallowOverlay)
	cancel, _ := other.OnExternalUpdate(func() { notified++ })
	defer cancel()

	s.Set(content.Path{}.Key("meta").Key("a"), 2)
	ctx, stop := context.WithCancel(context.Background())
	stop()
	if _, err := s.Save(ctx); err == nil {
		t.Fatal("expected save error")
	}
	if !s.Dirty() {
		t.Error("failed save must keep the session dirty")
	}
	if notified != 0 {
		t.Error("failed save must not notify")
	}

	snap, _ := f.store.Load(context.Background(), store.LoadParams{Slot: "portfolioData"})
	if string(snap.Data) != `{"meta":{"a":1}}` {
		t.Errorf("override changed: %s", snap.Data)
	}
}

func TestAddAndRemoveItems(t *testing.T) {
	f := newFixture(t)
	clock := func() time.Time { return time.UnixMilli(1700000000000) }
	s := f.loaded(t, fixtureData(t), content.ShallowOverlay, content.WithClock(clock))

	items := content.Path{}.Key("en").Key("projects").Key("items")
	idx, err := s.AddItem(items, content.KindProjects)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	id, _ := s.Get(items.Index(1).Key("id"))
	if id != float64(1700000000000) {
		t.Errorf("unexpected project id %v", id)
	}

	if _, err := s.AddItem(items, content.KindProjects); !errors.Is(err, content.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}

	if err := s.RemoveItem(items, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	title, _ := s.Get(items.Index(0).Key("title"))
	if title != "New Project" {
		t.Errorf("expected new project shifted to 0, got %v", title)
	}
	if err := s.RemoveItem(items, 5); !errors.Is(err, content.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	f := newFixture(t)
	s := f.loaded(t, `{"meta":{"a":1}}`, content.ShallowOverlay)

	v, _ := s.Get(content.Path{}.Key("meta"))
	v.(map[string]any)["a"] = "changed"
	if got, _ := s.Get(content.Path{}.Key("meta").Key("a")); got != float64(1) {
		t.Errorf("mutating a Get result changed the session: %v", got)
	}
	s.Document().Meta()["a"] = "changed"
	if got, _ := s.Get(content.Path{}.Key("meta").Key("a")); got != float64(1) {
		t.Errorf("mutating Document() changed the session: %v", got)
	}
}

func TestResetDiscardsOverride(t *testing.T) {
	f := newFixture(t)
	base := `{"meta":{"a":1}}`
	s := f.loaded(t, base, content.ShallowOverlay)
	s.Set(content.Path{}.Key("meta").Key("a"), 5)
	s.Save(context.Background())
	s.Set(content.Path{}.Key("meta").Key("a"), 6)
	s.Save(context.Background())

	notified := 0
	other := f.loaded(t, base, content.ShallowOverlay)
	cancel, _ := other.OnExternalUpdate(func() { notified++ })
	defer cancel()

	n, err := s.Reset(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 versions removed, got %d", n)
	}
	if !s.Document().Equal(mustParse(t, base)) {
		t.Error("expected baseline after reset")
	}
	if s.Version() != 0 {
		t.Errorf("expected version 0 after reset, got %d", s.Version())
	}
	if notified != 1 {
		t.Errorf("expected one notification, got %d", notified)
	}
}

func TestRestoreEarlierVersion(t *testing.T) {
	f := newFixture(t)
	s := f.loaded(t, `{"meta":{"a":1}}`, content.ShallowOverlay)
	a := content.Path{}.Key("meta").Key("a")
	s.Set(a, 5)
	s.Save(context.Background())
	s.Set(a, 6)
	s.Save(context.Background())

	snap, err := s.Restore(context.Background(), 1)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if snap.Version != 3 || s.Version() != 3 {
		t.Errorf("expected version 3, got %d / %d", snap.Version, s.Version())
	}
	if v, _ := s.Get(a); v != float64(5) {
		t.Errorf("expected restored value 5, got %v", v)
	}
}

func TestExportRoundTrip(t *testing.T) {
	f := newFixture(t)
	s := f.loaded(t, fixtureData(t), content.ShallowOverlay)
	s.Set(content.Path{}.Key("en").Key("hero").Key("subtitle"), "Staff Engineer & Mentor")
	s.AddItem(content.Path{}.Key("en").Key("services").Key("items"), content.KindServices)

	exported, err := s.ExportBytes()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	fresh := newFixture(t)
	again := fresh.loaded(t, string(exported), content.ShallowOverlay)
	if diff := cmp.Diff(s.Document().Root(), again.Document().Root()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if !s.Dirty() {
		t.Error("export must not clear dirty state")
	}
}

func TestImportReplacesAndSaves(t *testing.T) {
	f := newFixture(t)
	s := f.loaded(t, `{"meta":{"a":1,"b":2},"en":{"hero":{"x":1}}}`, content.ShallowOverlay)

	if _, err := s.Import(context.Background(), []byte(`{oops`)); err == nil {
		t.Fatal("expected error for malformed import")
	}
	if s.Version() != 0 {
		t.Error("malformed import must not save")
	}

	snap, err := s.Import(context.Background(), []byte(`{"meta":{"a":7},"en":{"hero":{"x":2}}}`))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("expected version 1, got %d", snap.Version)
	}

	// A fresh load merges the imported override over the baseline.
	fresh := f.loaded(t, `{"meta":{"a":1,"b":2},"en":{"hero":{"x":1}}}`, content.ShallowOverlay)
	want := map[string]any{
		"meta": map[string]any{"a": float64(7), "b": float64(2)},
		"en":   map[string]any{"hero": map[string]any{"x": float64(2)}},
	}
	if diff := cmp.Diff(want, fresh.Document().Root()); diff != "" {
		t.Errorf("imported document (-want +got):\n%s", diff)
	}
}

func TestOnExternalUpdateWithoutChannel(t *testing.T) {
	f := newFixture(t)
	s, _ := New(Options{
		Source: &baseline.Static{Name: "b", Data: []byte(`{}`)},
		Store:  f.store,
		Slot:   "portfolioData",
	})
	if _, err := s.OnExternalUpdate(func() {}); err == nil {
		t.Error("expected error without a channel")
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.Save(context.Background()); err != nil {
		t.Errorf("save without channel: %v", err)
	}
}

func TestLoadIfCleanKeepsEdits(t *testing.T) {
	f := newFixture(t)
	base := `{"meta":{"a":1}}`
	s := f.loaded(t, base, content.ShallowOverlay)
	f.persist(t, `{"meta":{"a":2}}`)

	a := content.Path{}.Key("meta").Key("a")
	s.Set(a, 3)
	ok, err := s.LoadIfClean(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no reload while dirty, got ok=%v err=%v", ok, err)
	}
	if v, _ := s.Get(a); v != float64(3) {
		t.Errorf("edit lost: %v", v)
	}

	s.Load(context.Background())
	f.persist(t, `{"meta":{"a":4}}`)
	ok, err = s.LoadIfClean(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected reload when clean, got ok=%v err=%v", ok, err)
	}
	if v, _ := s.Get(a); v != float64(4) {
		t.Errorf("expected 4 after reload, got %v", v)
	}
}
