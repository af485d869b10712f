package tui

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/paperdeck/paperdeck/internal/controller"
	"github.com/paperdeck/paperdeck/internal/doclist"
	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/routing"
	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/views"
)

// colorProfileMu serializes tests that mutate the global lipgloss color
// profile.
var colorProfileMu sync.Mutex

// forceColorProfile pins lipgloss to plain ASCII output so rendered views
// can be asserted without ANSI noise. Restores the original profile via
// t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixture wires a full model over an in-memory store: three documents
// (two tagged "invoice", one from correspondent "ACME"), plus one saved
// view filtering on the invoice tag.
type fixture struct {
	t       *testing.T
	store   *store.Store
	views   *views.Service
	list    *doclist.List
	router  *routing.Router
	editor  *Editor
	notices *Notices
	ctrl    *controller.Controller
	model   Model

	invoiceTag int64
	acmeID     int64
	savedView  *views.SavedView
	docIDs     []int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{t: t, store: s}
	f.invoiceTag, _ = s.EnsureTag("invoice")
	f.acmeID, _ = s.EnsureCorrespondent("ACME")
	typeID, _ := s.EnsureDocumentType("Invoice")

	f.addDoc(&store.Document{
		Title:           "Electric bill",
		Content:         "monthly electricity usage statement",
		CorrespondentID: &f.acmeID,
		DocumentTypeID:  &typeID,
		TagIDs:          []int64{f.invoiceTag},
		Created:         time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	f.addDoc(&store.Document{
		Title:   "Water bill",
		Content: "quarterly water usage",
		TagIDs:  []int64{f.invoiceTag},
		Created: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	f.addDoc(&store.Document{
		Title:   "Holiday photos",
		Content: "",
		Created: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	logger := testLogger()
	f.views = views.NewService(s, logger)
	f.list = doclist.NewList(s, logger)
	f.router = routing.NewRouter()
	f.editor = NewEditor(s)
	f.notices = NewNotices(logger)

	f.savedView, err = f.views.Create(&views.SavedView{
		Name:        "Invoices",
		FilterRules: tagRules(f.invoiceTag),
		SortField:   "created",
		SortReverse: true,
	})
	if err != nil {
		t.Fatalf("create saved view: %v", err)
	}

	f.ctrl = controller.New(controller.Options{
		List:   f.list,
		Views:  f.views,
		Nav:    f.router,
		Editor: f.editor,
		Routes: f.router,
		Notify: f.notices,
		Logger: logger,
		Async:  func(fn func()) { fn() },
	})
	t.Cleanup(f.ctrl.Close)
	f.ctrl.Start(f.router)

	f.model = New(Options{
		List:       f.list,
		Controller: f.ctrl,
		Views:      f.views,
		Router:     f.router,
		Editor:     f.editor,
		Docs:       s,
		Notices:    f.notices,
		Version:    "test",
	})
	f.update(tea.WindowSizeMsg{Width: 100, Height: 24})
	return f
}

func (f *fixture) addDoc(doc *store.Document) {
	f.t.Helper()
	if doc.Added.IsZero() {
		doc.Added = doc.Created
	}
	id, err := f.store.AddDocument(doc)
	if err != nil {
		f.t.Fatalf("AddDocument(%q): %v", doc.Title, err)
	}
	f.docIDs = append(f.docIDs, id)
}

// update sends a message and keeps the returned model.
func (f *fixture) update(msg tea.Msg) tea.Cmd {
	f.t.Helper()
	next, cmd := f.model.Update(msg)
	m, ok := next.(Model)
	if !ok {
		f.t.Fatalf("Update returned %T, want Model", next)
	}
	f.model = m
	return cmd
}

// press sends one key by its display string.
func (f *fixture) press(keys ...string) {
	f.t.Helper()
	for _, k := range keys {
		f.update(keyFor(k))
	}
}

func keyFor(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// typeText feeds characters into the focused text input.
func (f *fixture) typeText(s string) {
	f.t.Helper()
	for _, r := range s {
		f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func tagRules(ids ...int64) []filter.Rule {
	rules := make([]filter.Rule, 0, len(ids))
	for _, id := range ids {
		rules = append(rules, filter.Rule{
			Type:  filter.RuleTagsAll,
			Value: strconv.FormatInt(id, 10),
		})
	}
	return rules
}
