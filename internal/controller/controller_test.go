package controller

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/paperdeck/paperdeck/internal/doclist"
	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/routing"
	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/views"
)

// fakeEditor implements FilterEditor. SetRules records without emitting;
// emit simulates a user-driven change.
type fakeEditor struct {
	rules     []filter.Rule
	observers map[int]func([]filter.Rule)
	nextID    int
	added     []string
}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{observers: make(map[int]func([]filter.Rule))}
}

func (e *fakeEditor) SetRules(rules []filter.Rule) { e.rules = filter.CloneRules(rules) }
func (e *fakeEditor) AddTag(id int64)              { e.added = append(e.added, fmt.Sprintf("tag:%d", id)) }
func (e *fakeEditor) AddCorrespondent(id int64) {
	e.added = append(e.added, fmt.Sprintf("correspondent:%d", id))
}
func (e *fakeEditor) AddDocumentType(id int64) {
	e.added = append(e.added, fmt.Sprintf("doctype:%d", id))
}
func (e *fakeEditor) GenerateFilterName() string { return "filtered documents" }

func (e *fakeEditor) Observe(fn func([]filter.Rule)) (cancel func()) {
	id := e.nextID
	e.nextID++
	e.observers[id] = fn
	return func() { delete(e.observers, id) }
}

func (e *fakeEditor) emit(rules []filter.Rule) {
	for _, fn := range e.observers {
		fn(rules)
	}
}

// recordingNotifier captures surfaced errors.
type recordingNotifier struct {
	errors []string
}

func (n *recordingNotifier) Error(summary string, err error) {
	n.errors = append(n.errors, summary)
}

type fixture struct {
	store    *store.Store
	views    *views.Service
	list     *doclist.List
	router   *routing.Router
	consumed *events.Signal
	editor   *fakeEditor
	notify   *recordingNotifier
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		store:    s,
		views:    views.NewService(s, nil),
		list:     doclist.NewList(s, nil),
		router:   routing.NewRouter(),
		consumed: events.NewSignal(),
		editor:   newFakeEditor(),
		notify:   &recordingNotifier{},
	}
	f.ctrl = New(Options{
		List:     f.list,
		Views:    f.views,
		Nav:      f.router,
		Editor:   f.editor,
		Routes:   f.router,
		Consumed: f.consumed,
		Notify:   f.notify,
	})
	// Deliver deferred work synchronously so tests stay single-threaded.
	f.ctrl.async = func(fn func()) { fn() }
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) createView(t *testing.T, name string, rules []filter.Rule) int64 {
	t.Helper()
	id, err := f.store.CreateSavedView(&store.SavedView{
		Name:        name,
		FilterRules: rules,
		SortField:   "created",
	})
	if err != nil {
		t.Fatalf("CreateSavedView: %v", err)
	}
	return id
}

func (f *fixture) addDocs(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := f.store.AddDocument(&store.Document{Title: title}); err != nil {
			t.Fatalf("AddDocument(%q): %v", title, err)
		}
	}
}

func TestSavedViewRouteActivatesView(t *testing.T) {
	f := newFixture(t)
	id := f.createView(t, "Inbox", []filter.Rule{{Type: filter.RuleTagsAll, Value: "3"}})

	f.router.OpenSavedView(id)

	if got := f.list.ActiveSavedViewID(); got == nil || *got != id {
		t.Errorf("ActiveSavedViewID = %v, want %d", got, id)
	}
	want := []filter.Rule{{Type: filter.RuleTagsAll, Value: "3"}}
	if diff := cmp.Diff(want, f.list.FilterRules()); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	if f.list.Reloads() != 1 {
		t.Errorf("Reloads = %d, want exactly 1", f.list.Reloads())
	}
	// The editor was synced without producing an echo navigation.
	if diff := cmp.Diff(want, f.editor.rules); diff != "" {
		t.Errorf("editor rules mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryRouteActivatesAdHocFilters(t *testing.T) {
	f := newFixture(t)

	f.router.OpenDocuments(url.Values{"tags__id__all": {"3,4"}})

	if f.list.ActiveSavedViewID() != nil {
		t.Errorf("ActiveSavedViewID = %v, want nil", f.list.ActiveSavedViewID())
	}
	want := []filter.Rule{
		{Type: filter.RuleTagsAll, Value: "3"},
		{Type: filter.RuleTagsAll, Value: "4"},
	}
	if diff := cmp.Diff(want, f.list.FilterRules()); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	if f.list.Reloads() != 1 {
		t.Errorf("Reloads = %d, want exactly 1", f.list.Reloads())
	}
}

func TestSavedViewNotFound(t *testing.T) {
	f := newFixture(t)

	f.router.OpenSavedView(404)

	if !f.router.Current().NotFound {
		t.Error("expected navigation to the not-found route")
	}
	if f.list.Reloads() != 0 {
		t.Errorf("Reloads = %d, want 0 (no partial state)", f.list.Reloads())
	}
	if f.list.ActiveSavedViewID() != nil {
		t.Error("no authority should be established for a missing view")
	}
}

func TestInteractiveEditNavigatesAwayFromSavedView(t *testing.T) {
	f := newFixture(t)
	id := f.createView(t, "Inbox", []filter.Rule{{Type: filter.RuleTagsAll, Value: "3"}})
	f.router.OpenSavedView(id)

	edited := []filter.Rule{{Type: filter.RuleTagsAll, Value: "9"}}
	f.editor.emit(edited)

	snap := f.router.Current()
	if snap.ViewID != nil {
		t.Error("editing filters must navigate to the unscoped list route")
	}
	if got := snap.Query.Get("tags__id__all"); got != "9" {
		t.Errorf("query = %q, want %q", got, "9")
	}
	if f.list.ActiveSavedViewID() != nil {
		t.Error("saved-view authority must be cleared by an interactive edit")
	}
	if diff := cmp.Diff(edited, f.list.FilterRules()); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	// One reload for the view activation, one for the edit's navigation.
	if f.list.Reloads() != 2 {
		t.Errorf("Reloads = %d, want 2", f.list.Reloads())
	}
}

func TestInteractiveEditUnderAdHocUpdatesQuery(t *testing.T) {
	f := newFixture(t)
	f.router.OpenDocuments(url.Values{"title": {"a"}})

	f.editor.emit([]filter.Rule{{Type: filter.RuleTitle, Value: "b"}})

	if got := f.router.Current().Query.Get("title"); got != "b" {
		t.Errorf("query = %q, want %q", got, "b")
	}
	if f.list.Reloads() != 2 {
		t.Errorf("Reloads = %d, want 2", f.list.Reloads())
	}
}

func TestConsumptionFinishedIsPureRefresh(t *testing.T) {
	f := newFixture(t)
	id := f.createView(t, "Inbox", []filter.Rule{{Type: filter.RuleTagsAll, Value: "3"}})
	f.router.OpenSavedView(id)
	f.list.ToggleSelected(42)
	before := f.list.FilterRules()

	f.consumed.Publish()

	if f.list.Reloads() != 2 {
		t.Errorf("Reloads = %d, want 2 (one activation, one refresh)", f.list.Reloads())
	}
	if diff := cmp.Diff(before, f.list.FilterRules()); diff != "" {
		t.Errorf("rules changed by refresh (-want +got):\n%s", diff)
	}
	if got := f.list.ActiveSavedViewID(); got == nil || *got != id {
		t.Error("authority changed by refresh")
	}
	if !f.list.Selection().IsSelected(42) {
		t.Error("selection changed by refresh")
	}
}

func TestDirtyTracking(t *testing.T) {
	f := newFixture(t)
	id := f.createView(t, "Inbox", []filter.Rule{{Type: filter.RuleTagsAll, Value: "3"}})
	f.router.OpenSavedView(id)

	if f.ctrl.IsDirty() {
		t.Error("freshly loaded view must not be dirty")
	}

	f.list.SetFilterRules([]filter.Rule{{Type: filter.RuleTagsAll, Value: "4"}})
	if !f.ctrl.IsDirty() {
		t.Error("mutated rules must flip dirty")
	}

	if err := f.ctrl.SaveView(); err != nil {
		t.Fatalf("SaveView: %v", err)
	}
	if f.ctrl.IsDirty() {
		t.Error("successful save must clear dirty")
	}

	got, err := f.store.GetSavedView(id)
	if err != nil {
		t.Fatalf("GetSavedView: %v", err)
	}
	want := []filter.Rule{{Type: filter.RuleTagsAll, Value: "4"}}
	if diff := cmp.Diff(want, got.FilterRules); diff != "" {
		t.Errorf("persisted rules mismatch (-want +got):\n%s", diff)
	}
}

func TestDirtyIsOrderSensitive(t *testing.T) {
	f := newFixture(t)
	rules := []filter.Rule{
		{Type: filter.RuleTagsAll, Value: "3"},
		{Type: filter.RuleTagsAll, Value: "4"},
	}
	id := f.createView(t, "Ordered", rules)
	f.router.OpenSavedView(id)

	f.list.SetFilterRules([]filter.Rule{
		{Type: filter.RuleTagsAll, Value: "4"},
		{Type: filter.RuleTagsAll, Value: "3"},
	})
	if !f.ctrl.IsDirty() {
		t.Error("same rule set in different order must count as dirty")
	}
}

func TestSaveViewAsNavigatesToNewView(t *testing.T) {
	f := newFixture(t)
	f.router.OpenDocuments(url.Values{"title": {"tax"}})

	created, err := f.ctrl.SaveViewAs("Tax stuff", false, true)
	if err != nil {
		t.Fatalf("SaveViewAs: %v", err)
	}

	snap := f.router.Current()
	if snap.ViewID == nil || *snap.ViewID != created.ID {
		t.Errorf("expected navigation to view %d, got %+v", created.ID, snap)
	}
	if got := f.list.ActiveSavedViewTitle(); got != "Tax stuff" {
		t.Errorf("ActiveSavedViewTitle = %q, want %q", got, "Tax stuff")
	}
}

func TestSaveViewAsValidationErrorLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.router.OpenDocuments(url.Values{"title": {"tax"}})
	reloadsBefore := f.list.Reloads()

	_, err := f.ctrl.SaveViewAs("", false, false)
	var verr *views.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if f.list.Reloads() != reloadsBefore {
		t.Error("validation failure must not trigger navigation or reload")
	}
	if f.list.ActiveSavedViewID() != nil {
		t.Error("validation failure must not change authority")
	}
}

func TestQuickFilterClearsSelectionAndNavigates(t *testing.T) {
	f := newFixture(t)
	f.addDocs(t, "a", "b")
	f.router.OpenDocuments(nil)
	f.list.ToggleSelected(1)

	f.ctrl.QuickFilter([]filter.Rule{{Type: filter.RuleMoreLike, Value: "1"}})

	if f.list.IsBulkEditing() {
		t.Error("quick filter must clear the selection first")
	}
	if got := f.router.Current().Query.Get("more_like_id"); got != "1" {
		t.Errorf("query = %q, want %q", got, "1")
	}
}

func TestAddTagClearsSelectionThenDelegates(t *testing.T) {
	f := newFixture(t)
	f.router.OpenDocuments(nil)
	f.list.ToggleSelected(1)

	f.ctrl.AddTag(7)

	if f.list.IsBulkEditing() {
		t.Error("selection must be cleared before delegating to the editor")
	}
	if diff := cmp.Diff([]string{"tag:7"}, f.editor.added); diff != "" {
		t.Errorf("editor delegation mismatch (-want +got):\n%s", diff)
	}

	f.ctrl.AddCorrespondent(8)
	f.ctrl.AddDocumentType(9)
	want := []string{"tag:7", "correspondent:8", "doctype:9"}
	if diff := cmp.Diff(want, f.editor.added); diff != "" {
		t.Errorf("editor delegation mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseReleasesAllSubscriptions(t *testing.T) {
	f := newFixture(t)
	f.router.OpenDocuments(nil)
	if f.list.Reloads() != 1 {
		t.Fatalf("Reloads = %d, want 1", f.list.Reloads())
	}

	f.ctrl.Close()

	f.router.OpenDocuments(url.Values{"title": {"late"}})
	f.consumed.Publish()
	f.editor.emit([]filter.Rule{{Type: filter.RuleTitle, Value: "late"}})

	if f.list.Reloads() != 1 {
		t.Errorf("Reloads = %d after Close, want 1 (no handler may fire)", f.list.Reloads())
	}
	if f.consumed.SubscriberCount() != 0 {
		t.Errorf("consumption signal still has %d subscribers", f.consumed.SubscriberCount())
	}
}

func TestStartUsesCurrentSnapshot(t *testing.T) {
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	router := routing.NewRouter()
	router.OpenDocuments(url.Values{"title": {"x"}})

	list := doclist.NewList(s, nil)
	ctrl := New(Options{
		List:   list,
		Views:  views.NewService(s, nil),
		Nav:    router,
		Routes: router,
	})
	t.Cleanup(ctrl.Close)

	ctrl.Start(router)

	if list.Reloads() != 1 {
		t.Errorf("Reloads = %d, want 1", list.Reloads())
	}
	if len(list.FilterRules()) != 1 {
		t.Errorf("expected the current snapshot's rules to apply, got %v", list.FilterRules())
	}
}
