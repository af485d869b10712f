package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/paperdeck/paperdeck/internal/store"
)

// handleListKeys handles keys in the document list.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.modal = modalHelp
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampScroll()
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.list.Documents())-1 {
			m.cursor++
			m.clampScroll()
		}
		return m, nil

	case "pgup", "ctrl+u":
		m.cursor -= m.pageSize
		m.clampCursor()
		return m, nil

	case "pgdown", "ctrl+d":
		m.cursor += m.pageSize
		m.clampCursor()
		return m, nil

	case "g", "home":
		m.cursor = 0
		m.clampScroll()
		return m, nil

	case "G", "end":
		if n := len(m.list.Documents()); n > 0 {
			m.cursor = n - 1
		}
		m.clampScroll()
		return m, nil

	case " ":
		if doc, ok := m.currentDoc(); ok {
			m.list.ToggleSelected(doc.ID)
		}
		return m, nil

	case "V":
		if doc, ok := m.currentDoc(); ok {
			m.list.SelectRangeTo(doc.ID)
		}
		return m, nil

	case "esc":
		if m.list.IsBulkEditing() {
			m.list.SelectNone()
			return m, nil
		}
		if m.list.ActiveSavedViewID() == nil && len(m.list.FilterRules()) > 0 {
			// Clear the ad-hoc filter entirely.
			m.ctrl.QuickFilter(nil)
			m.cursor = 0
			m.scrollOffset = 0
			m.clampCursor()
			return m.drainNotices()
		}
		return m, nil

	case "enter":
		m.openDetail()
		return m.drainNotices()

	case "/":
		m.filterActive = true
		m.filterInput.SetValue(currentTextQuery(m.list.FilterRules()))
		m.filterInput.CursorEnd()
		cmd := m.filterInput.Focus()
		return m, cmd

	case "v":
		m.openViewPicker()
		return m.drainNotices()

	case "s":
		v := m.ctrl.ActiveView()
		if v == nil {
			cmd := m.openSaveDialog()
			return m, cmd
		}
		// Dirty tracking covers filter rules only; a sort change alone
		// still needs persisting.
		sortChanged := m.list.SortField() != v.SortField || m.list.SortReverse() != v.SortReverse
		if !m.ctrl.IsDirty() && !sortChanged {
			return m.flash("No changes to save")
		}
		if err := m.ctrl.SaveView(); err != nil {
			return m.flash(validationText(err))
		}
		return m.flash("View \"" + m.ctrl.ActiveView().Name + "\" saved")

	case "S":
		cmd := m.openSaveDialog()
		return m, cmd

	case "m":
		return m.quickFilterMoreLike()

	case "t":
		return m.addCriteriaFromDoc(func(d *store.Document) {
			for _, id := range d.TagIDs {
				m.ctrl.AddTag(id)
			}
		})

	case "c":
		return m.addCriteriaFromDoc(func(d *store.Document) {
			if d.CorrespondentID != nil {
				m.ctrl.AddCorrespondent(*d.CorrespondentID)
			}
		})

	case "d":
		return m.addCriteriaFromDoc(func(d *store.Document) {
			if d.DocumentTypeID != nil {
				m.ctrl.AddDocumentType(*d.DocumentTypeID)
			}
		})

	case "o":
		// Cycle sort: created desc -> created asc -> title asc -> added desc
		m.cycleSort()
		return m.drainNotices()

	case "r":
		if err := m.list.Reload(); err != nil {
			m.notify.Error("failed to refresh documents", err)
		}
		m.clampCursor()
		return m.drainNotices()
	}
	return m, nil
}

// cycleSort steps through the common sort orders and reloads.
func (m *Model) cycleSort() {
	field, reverse := m.list.SortField(), m.list.SortReverse()
	switch {
	case field == "created" && reverse:
		m.list.SetSort("created", false)
	case field == "created":
		m.list.SetSort("title", false)
	case field == "title":
		m.list.SetSort("added", true)
	default:
		m.list.SetSort("created", true)
	}
	if err := m.list.Reload(); err != nil {
		m.notify.Error("failed to sort documents", err)
	}
	m.clampCursor()
}

// handleFilterInputKeys handles keys while the full-text filter bar is
// focused. Committing emits through the editor, which navigates and
// reloads via the controller.
func (m Model) handleFilterInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterActive = false
		m.filterInput.Blur()
		m.editor.SetTextQuery(m.filterInput.Value())
		m.cursor = 0
		m.scrollOffset = 0
		m.clampCursor()
		return m.drainNotices()

	case "esc":
		m.filterActive = false
		m.filterInput.Blur()
		return m, nil

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
}

// handleViewPickerKeys handles keys in the saved-view picker modal.
func (m Model) handleViewPickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "v", "q":
		m.modal = modalNone
		return m, nil

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
		return m, nil

	case "down", "j":
		if m.pickerCursor < len(m.pickerViews) {
			m.pickerCursor++
		}
		return m, nil

	case "enter":
		m.modal = modalNone
		// The first entry is the unscoped document list.
		if m.pickerCursor == 0 {
			m.router.OpenDocuments(nil)
		} else if i := m.pickerCursor - 1; i < len(m.pickerViews) {
			m.router.OpenSavedView(m.pickerViews[i].ID)
		}
		m.cursor = 0
		m.scrollOffset = 0
		m.clampCursor()
		return m.drainNotices()

	case "x":
		if i := m.pickerCursor - 1; i >= 0 && i < len(m.pickerViews) {
			deleted := m.pickerViews[i]
			if err := m.views.Delete(deleted.ID); err != nil {
				m.notify.Error("failed to delete saved view", err)
				return m.drainNotices()
			}
			m.pickerViews = append(m.pickerViews[:i], m.pickerViews[i+1:]...)
			if m.pickerCursor > len(m.pickerViews) {
				m.pickerCursor = len(m.pickerViews)
			}
			// Deleting the active view falls back to the plain list.
			if active := m.list.ActiveSavedViewID(); active != nil && *active == deleted.ID {
				m.router.OpenDocuments(nil)
			}
			return m.drainNotices()
		}
		return m, nil
	}
	return m, nil
}

// handleDetailKeys handles keys in the document detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter":
		m.level = levelList
		m.detail = nil
		m.detailScroll = 0
		return m, nil

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
		return m, nil

	case "down", "j":
		m.detailScroll++
		return m, nil

	case "pgup":
		m.detailScroll -= m.pageSize
		if m.detailScroll < 0 {
			m.detailScroll = 0
		}
		return m, nil

	case "pgdown":
		m.detailScroll += m.pageSize
		return m, nil
	}
	return m, nil
}
