// Package doclist owns the live document-list state: active filter rules,
// sort order, selection, and the currently loaded documents. All mutation
// happens on the single event goroutine of the owning surface; the package
// deliberately carries no locks.
package doclist

import (
	"fmt"
	"log/slog"

	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/store"
)

// DocumentSource is the query surface the list needs from the store.
type DocumentSource interface {
	SearchDocuments(rules []filter.Rule, sortField string, sortReverse bool) ([]store.DocumentSummary, error)
}

// DefaultSortField orders by ingestion time, newest first, matching the
// unfiltered landing view.
const DefaultSortField = "created"

// List is the document-collection service: it owns filterRules, sort
// state, the active saved view, and the selection set.
type List struct {
	source DocumentSource
	logger *slog.Logger

	rules       []filter.Rule
	sortField   string
	sortReverse bool
	activeView  *store.SavedView

	docs      []store.DocumentSummary
	selection *Selection

	reloads int // reload counter, observable by tests and the footer
}

// NewList creates a list over the given document source.
func NewList(source DocumentSource, logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	return &List{
		source:      source,
		logger:      logger,
		sortField:   DefaultSortField,
		sortReverse: true,
		selection:   NewSelection(),
	}
}

// Reload fetches documents for the current rules and sort order. This is
// the only path to the document source.
func (l *List) Reload() error {
	docs, err := l.source.SearchDocuments(l.rules, l.sortField, l.sortReverse)
	if err != nil {
		return fmt.Errorf("reload documents: %w", err)
	}
	l.docs = docs
	l.reloads++
	l.logger.Debug("document list reloaded",
		"documents", len(docs),
		"rules", len(l.rules),
		"sort", l.sortField,
		"reverse", l.sortReverse)
	return nil
}

// Documents returns the currently loaded documents in rendered order.
func (l *List) Documents() []store.DocumentSummary {
	return l.docs
}

// FilterRules returns a copy of the active rules.
func (l *List) FilterRules() []filter.Rule {
	return filter.CloneRules(l.rules)
}

// SetFilterRules replaces the active rule list. It does not reload; the
// caller decides when the transition is complete.
func (l *List) SetFilterRules(rules []filter.Rule) {
	l.rules = filter.CloneRules(rules)
}

// SortField returns the active sort field.
func (l *List) SortField() string { return l.sortField }

// SortReverse returns whether the sort is reversed.
func (l *List) SortReverse() bool { return l.sortReverse }

// SetSort sets the sort field and direction.
func (l *List) SetSort(field string, reverse bool) {
	l.sortField = field
	l.sortReverse = reverse
}

// ActiveSavedViewID returns the active view's ID, or nil under ad-hoc
// authority.
func (l *List) ActiveSavedViewID() *int64 {
	if l.activeView == nil {
		return nil
	}
	id := l.activeView.ID
	return &id
}

// ActiveSavedViewTitle returns the active view's name, or "" when none.
func (l *List) ActiveSavedViewTitle() string {
	if l.activeView == nil {
		return ""
	}
	return l.activeView.Name
}

// ActivateSavedView makes the given view authoritative, adopting its rules
// and sort order. Passing nil clears saved-view authority and leaves the
// current rules in place for the ad-hoc path to overwrite.
func (l *List) ActivateSavedView(v *store.SavedView) {
	l.activeView = v
	if v != nil {
		l.rules = filter.CloneRules(v.FilterRules)
		l.sortField = v.SortField
		l.sortReverse = v.SortReverse
	}
}

// LoadSavedView activates the view and reloads in one step.
func (l *List) LoadSavedView(v *store.SavedView) error {
	l.ActivateSavedView(v)
	return l.Reload()
}

// QuickFilter replaces the rule set wholesale, drops saved-view authority,
// and reloads. Used for one-shot filters like "more like this".
func (l *List) QuickFilter(rules []filter.Rule) error {
	l.activeView = nil
	l.rules = filter.CloneRules(rules)
	return l.Reload()
}

// Reloads returns how many reloads have completed.
func (l *List) Reloads() int { return l.reloads }

// Selection exposes the selection set.
func (l *List) Selection() *Selection { return l.selection }

// ToggleSelected flips selection of one document.
func (l *List) ToggleSelected(id int64) {
	l.selection.Toggle(id)
}

// SelectRangeTo extends the selection through id in rendered order.
func (l *List) SelectRangeTo(id int64) {
	l.selection.SelectRangeTo(id, l.renderedIDs())
}

// SelectNone clears the selection.
func (l *List) SelectNone() {
	l.selection.SelectNone()
}

// IsBulkEditing reports whether any documents are selected.
func (l *List) IsBulkEditing() bool {
	return l.selection.IsBulkEditing()
}

func (l *List) renderedIDs() []int64 {
	ids := make([]int64, len(l.docs))
	for i, d := range l.docs {
		ids[i] = d.ID
	}
	return ids
}
