// Package tui provides the interactive terminal interface for paperdeck:
// the filtered document list, saved-view navigation, bulk selection, and
// the save-view dialog.
package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/paperdeck/paperdeck/internal/controller"
	"github.com/paperdeck/paperdeck/internal/doclist"
	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/routing"
	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/views"
)

// DocumentStore provides the full document record for the detail view.
// *store.Store satisfies it.
type DocumentStore interface {
	GetDocument(id int64) (*store.Document, error)
}

// viewLevel is the current navigation depth.
type viewLevel int

const (
	levelList viewLevel = iota
	levelDetail
)

// modalType identifies the open modal dialog, if any.
type modalType int

const (
	modalNone modalType = iota
	modalHelp
	modalViewPicker
	modalSaveAs
)

// flashDuration is how long flash messages stay on the footer.
const flashDuration = 4 * time.Second

// chromeLines is the vertical space taken by title bar, header, separator,
// and footer around the document table.
const chromeLines = 6

// Options bundles the collaborators of the TUI model. All of them are
// required except Docs, which disables the detail view when nil.
type Options struct {
	List       *doclist.List
	Controller *controller.Controller
	Views      *views.Service
	Router     *routing.Router
	Editor     *Editor
	Docs       DocumentStore
	Notices    *Notices
	Version    string
}

// Model is the bubbletea model. All state mutation happens on the program
// goroutine; external events enter through program.Send as messages.
type Model struct {
	list   *doclist.List
	ctrl   *controller.Controller
	views  *views.Service
	router *routing.Router
	editor *Editor
	docs   DocumentStore
	notify *Notices

	version string

	width    int
	height   int
	pageSize int

	level        viewLevel
	cursor       int
	scrollOffset int

	// Detail view
	detail       *store.Document
	detailScroll int

	// Full-text filter input
	filterInput  textinput.Model
	filterActive bool

	// Saved-view picker
	modal        modalType
	pickerViews  []views.SavedView
	pickerCursor int

	// Save-as dialog. The form binds pointers into saveState, which must
	// stay shared across model copies.
	saveForm  *huh.Form
	saveState *saveDialogState
	saveErr   string

	flashMessage   string
	flashExpiresAt time.Time

	quitting bool
}

// DocumentsConsumedMsg is sent into the program when the consumption
// scheduler imports new documents.
type DocumentsConsumedMsg struct{}

// ForwardConsumption bridges the consumption signal into the program's
// message loop. Delivery runs on its own goroutine: program.Send blocks
// until the event loop is started, and the consumer's first scan fires
// the signal before Run is reached, so a synchronous Send would deadlock
// startup.
func ForwardConsumption(p *tea.Program, sig *events.Signal) (cancel func()) {
	return sig.Subscribe(func() {
		go p.Send(DocumentsConsumedMsg{})
	})
}

// ApplyMsg carries deferred controller work back onto the program
// goroutine. The controller's Async option produces these via
// program.Send, so deferred filter edits never run concurrently with the
// update loop.
type ApplyMsg struct{ Fn func() }

// flashClearMsg removes an expired flash message.
type flashClearMsg struct{}

// New creates a TUI model from its collaborators.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "search documents"
	ti.CharLimit = 200
	ti.Width = 40

	notify := opts.Notices
	if notify == nil {
		notify = NewNotices(nil)
	}

	return Model{
		list:        opts.List,
		ctrl:        opts.Controller,
		views:       opts.Views,
		router:      opts.Router,
		editor:      opts.Editor,
		docs:        opts.Docs,
		notify:      notify,
		version:     opts.Version,
		pageSize:    20,
		filterInput: ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pageSize = msg.Height - chromeLines
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		m.clampCursor()
		if m.modal == modalSaveAs && m.saveForm != nil {
			return m.updateSaveForm(msg)
		}
		return m, nil

	case DocumentsConsumedMsg:
		m.ctrl.RefreshDocuments()
		m.clampCursor()
		return m.flash("New documents consumed")

	case ApplyMsg:
		if msg.Fn != nil {
			msg.Fn()
		}
		m.clampCursor()
		return m.drainNotices()

	case flashClearMsg:
		if !m.flashExpiresAt.After(time.Now()) {
			m.flashMessage = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Everything else belongs to the save form while it is open (blink
	// ticks, form-internal messages).
	if m.modal == modalSaveAs && m.saveForm != nil {
		return m.updateSaveForm(msg)
	}
	if m.filterActive {
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.modal == modalSaveAs:
		return m.updateSaveForm(msg)
	case m.modal == modalViewPicker:
		return m.handleViewPickerKeys(msg)
	case m.modal == modalHelp:
		m.modal = modalNone
		return m, nil
	case m.filterActive:
		return m.handleFilterInputKeys(msg)
	case m.level == levelDetail:
		return m.handleDetailKeys(msg)
	default:
		return m.handleListKeys(msg)
	}
}

// flash sets a footer message and schedules its removal.
func (m Model) flash(text string) (Model, tea.Cmd) {
	m.flashMessage = text
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// drainNotices surfaces any errors collaborators queued during the last
// interaction. Returns the model unchanged when nothing is queued.
func (m Model) drainNotices() (Model, tea.Cmd) {
	msgs := m.notify.Drain()
	if len(msgs) == 0 {
		return m, nil
	}
	return m.flash(msgs[len(msgs)-1])
}

func (m *Model) clampCursor() {
	n := len(m.list.Documents())
	if n == 0 {
		m.cursor = 0
		m.scrollOffset = 0
		return
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampScroll()
}

func (m *Model) clampScroll() {
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+m.pageSize {
		m.scrollOffset = m.cursor - m.pageSize + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// currentDoc returns the document under the cursor.
func (m Model) currentDoc() (store.DocumentSummary, bool) {
	docs := m.list.Documents()
	if m.cursor < 0 || m.cursor >= len(docs) {
		return store.DocumentSummary{}, false
	}
	return docs[m.cursor], true
}

// saveDialogState backs the save-as form fields. It lives behind a
// pointer so the form's value bindings survive model copies.
type saveDialogState struct {
	name      string
	dashboard bool
	sidebar   bool
}

// openSaveDialog prepares the save-as form. When the filter describes
// itself, that description seeds the name field.
func (m *Model) openSaveDialog() tea.Cmd {
	m.saveState = &saveDialogState{
		name:    m.editor.GenerateFilterName(),
		sidebar: true,
	}
	m.saveErr = ""
	m.saveForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("View name").
				Value(&m.saveState.name),
			huh.NewConfirm().
				Key("dashboard").
				Title("Show on dashboard").
				Value(&m.saveState.dashboard),
			huh.NewConfirm().
				Key("sidebar").
				Title("Show in sidebar").
				Value(&m.saveState.sidebar),
		),
	).WithShowHelp(false)
	m.modal = modalSaveAs
	return m.saveForm.Init()
}

// updateSaveForm forwards a message to the save-as form and reacts to its
// terminal states. Validation failures reopen the form with the error
// shown, keeping the user's input.
func (m Model) updateSaveForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.modal = modalNone
		m.saveForm = nil
		m.saveState = nil
		return m, nil
	}

	form, cmd := m.saveForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.saveForm = f
	}

	switch m.saveForm.State {
	case huh.StateCompleted:
		return m.submitSaveDialog()
	case huh.StateAborted:
		m.modal = modalNone
		m.saveForm = nil
		m.saveState = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) submitSaveDialog() (tea.Model, tea.Cmd) {
	state := m.saveState
	created, err := m.ctrl.SaveViewAs(state.name, state.dashboard, state.sidebar)
	if err != nil {
		// The dialog stays open so the user can correct the input.
		cmd := m.openSaveDialog()
		*m.saveState = *state
		m.saveErr = validationText(err)
		return m, cmd
	}
	m.modal = modalNone
	m.saveForm = nil
	m.saveState = nil
	m.clampCursor()
	return m.flash("Saved view \"" + created.Name + "\" created")
}

// validationText flattens a save error into one dialog line.
func validationText(err error) string {
	var verr *views.ValidationError
	if errors.As(err, &verr) {
		for _, msgs := range verr.Fields {
			if len(msgs) > 0 {
				return msgs[0]
			}
		}
	}
	return err.Error()
}

// openViewPicker loads the saved views and shows the picker.
func (m *Model) openViewPicker() {
	all, err := m.views.All()
	if err != nil {
		m.notify.Error("failed to load saved views", err)
		return
	}
	m.pickerViews = all
	m.pickerCursor = 0
	m.modal = modalViewPicker
}

// openDetail loads the full record for the document under the cursor.
func (m *Model) openDetail() {
	if m.docs == nil {
		return
	}
	doc, ok := m.currentDoc()
	if !ok {
		return
	}
	full, err := m.docs.GetDocument(doc.ID)
	if err != nil {
		m.notify.Error("failed to load document", err)
		return
	}
	if full == nil {
		m.notify.Error("document no longer exists", nil)
		return
	}
	m.detail = full
	m.detailScroll = 0
	m.level = levelDetail
}

// quickFilterMoreLike replaces the filter with a more-like-this query for
// the document under the cursor.
func (m Model) quickFilterMoreLike() (tea.Model, tea.Cmd) {
	doc, ok := m.currentDoc()
	if !ok {
		return m, nil
	}
	m.ctrl.QuickFilter([]filter.Rule{{
		Type:  filter.RuleMoreLike,
		Value: formatID(doc.ID),
	}})
	m.cursor = 0
	m.scrollOffset = 0
	m.clampCursor()
	return m.drainNotices()
}

// addCriteriaFromDoc narrows the filter using the metadata of the document
// under the cursor.
func (m Model) addCriteriaFromDoc(apply func(*store.Document)) (tea.Model, tea.Cmd) {
	if m.docs == nil {
		return m, nil
	}
	doc, ok := m.currentDoc()
	if !ok {
		return m, nil
	}
	full, err := m.docs.GetDocument(doc.ID)
	if err != nil || full == nil {
		m.notify.Error("failed to load document", err)
		return m.drainNotices()
	}
	apply(full)
	m.cursor = 0
	m.scrollOffset = 0
	m.clampCursor()
	return m.drainNotices()
}
