// Package controller reconciles the document list's filter, sort, and
// selection state across its three sources of truth: saved views addressed
// by route, ad-hoc filters encoded in query parameters, and live edits from
// the filter editor. Exactly one of saved-view or ad-hoc authority holds at
// any time, and every authority transition triggers exactly one reload.
package controller

import (
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/paperdeck/paperdeck/internal/doclist"
	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/routing"
	"github.com/paperdeck/paperdeck/internal/views"
)

// FilterEditor is the filter-editing surface. Implementations emit a full
// rule list through their observer on every user-driven change; SetRules
// pushes state into the editor and must NOT re-emit, or edits would loop
// back through the controller forever.
type FilterEditor interface {
	SetRules(rules []filter.Rule)
	AddTag(id int64)
	AddCorrespondent(id int64)
	AddDocumentType(id int64)
	GenerateFilterName() string
	Observe(fn func([]filter.Rule)) (cancel func())
}

// RouteSource provides navigation snapshots. The controller reads the
// saved-view segment and the query parameters from the same snapshot, so a
// single navigation can never fire contradictory authority changes.
type RouteSource interface {
	Observe(fn func(routing.Snapshot)) (cancel func())
	Current() routing.Snapshot
}

// Notifier surfaces failures to the user. Transient fetch failures go here
// rather than being retried.
type Notifier interface {
	Error(summary string, err error)
}

type noopNotifier struct{}

func (noopNotifier) Error(string, error) {}

// Controller is the view-state controller for the document list.
type Controller struct {
	list   *doclist.List
	views  *views.Service
	codec  *filter.Codec
	nav    routing.Navigator
	editor FilterEditor
	notify Notifier
	logger *slog.Logger

	activeView *views.SavedView
	unmodified []filter.Rule // rules at last load/save of the active view

	// async defers work past the current event-loop turn, so that editor
	// updates triggered by quick-filter shortcuts don't interleave with
	// transient selection state. Tests replace it with a synchronous run.
	async func(fn func())

	cancels []func()
	closed  bool
}

// Options bundles the collaborators of a Controller.
type Options struct {
	List     *doclist.List
	Views    *views.Service
	Codec    *filter.Codec
	Nav      routing.Navigator
	Editor   FilterEditor
	Routes   RouteSource
	Consumed *events.Signal
	Notify   Notifier
	Logger   *slog.Logger

	// Async defers work past the current event-loop turn. The default
	// runs on a new goroutine; single-threaded hosts (the TUI) inject a
	// deferral that re-enters their own event loop instead.
	Async func(fn func())
}

// New wires a Controller to its collaborators and registers all
// subscriptions. Release them with Close.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := opts.Notify
	if notify == nil {
		notify = noopNotifier{}
	}
	codec := opts.Codec
	if codec == nil {
		codec = filter.NewCodec(nil)
	}

	c := &Controller{
		list:   opts.List,
		views:  opts.Views,
		codec:  codec,
		nav:    opts.Nav,
		editor: opts.Editor,
		notify: notify,
		logger: logger,
		async:  opts.Async,
	}
	if c.async == nil {
		c.async = func(fn func()) { go fn() }
	}

	if opts.Routes != nil {
		c.cancels = append(c.cancels, opts.Routes.Observe(c.HandleRoute))
	}
	if opts.Editor != nil {
		c.cancels = append(c.cancels, opts.Editor.Observe(c.RulesChanged))
	}
	if opts.Consumed != nil {
		c.cancels = append(c.cancels, opts.Consumed.Subscribe(c.RefreshDocuments))
	}
	return c
}

// Start processes the route source's current snapshot, establishing the
// initial authority.
func (c *Controller) Start(routes RouteSource) {
	if routes != nil {
		c.HandleRoute(routes.Current())
	}
}

// Close releases every subscription. After Close no handler fires, even if
// a collaborator publishes late.
func (c *Controller) Close() {
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
}

// HandleRoute is the single state-transition function over a navigation
// snapshot. A saved-view segment takes precedence over query parameters;
// the two paths are mutually exclusive per snapshot.
func (c *Controller) HandleRoute(s routing.Snapshot) {
	if c.closed || s.NotFound {
		return
	}
	if s.ViewID != nil {
		c.activateSavedView(*s.ViewID)
		return
	}
	c.activateAdHoc(s)
}

func (c *Controller) activateSavedView(id int64) {
	v, err := c.views.GetCached(id)
	if err != nil {
		if eris.Is(err, views.ErrNotFound) {
			// Terminal for this activation attempt: no partial or
			// stale filter state, no reload, no retry.
			c.logger.Warn("saved view not found", "id", id)
			c.nav.NotFound()
			return
		}
		c.notify.Error("failed to load saved view", err)
		return
	}

	c.activeView = v
	c.unmodified = filter.CloneRules(v.FilterRules)
	if err := c.list.LoadSavedView(v); err != nil {
		c.notify.Error("failed to load documents", err)
		return
	}
	if c.editor != nil {
		c.editor.SetRules(v.FilterRules)
	}
	c.logger.Debug("saved view activated", "id", v.ID, "name", v.Name)
}

func (c *Controller) activateAdHoc(s routing.Snapshot) {
	rules, err := c.codec.Decode(s.Query)
	if err != nil {
		// Catalog inconsistency is a configuration defect; surface
		// it instead of silently dropping rules.
		c.notify.Error("invalid filter parameters", err)
		return
	}

	c.activeView = nil
	c.unmodified = nil
	c.list.ActivateSavedView(nil)
	c.list.SetFilterRules(rules)
	if err := c.list.Reload(); err != nil {
		c.notify.Error("failed to load documents", err)
		return
	}
	if c.editor != nil {
		c.editor.SetRules(rules)
	}
	c.logger.Debug("ad-hoc filters activated", "rules", len(rules))
}

// RulesChanged handles a user-driven edit from the filter editor. The new
// rules are re-encoded into query parameters and applied via navigation, so
// the URL shape keeps reflecting authority: editing under a saved view
// first drops its authority and moves to the unscoped list route.
func (c *Controller) RulesChanged(rules []filter.Rule) {
	if c.closed {
		return
	}
	params, err := c.codec.Encode(rules)
	if err != nil {
		c.notify.Error("cannot encode filter rules", err)
		return
	}
	if c.activeView != nil {
		c.activeView = nil
		c.unmodified = nil
		c.list.ActivateSavedView(nil)
	}
	c.nav.OpenDocuments(params)
}

// QuickFilter unconditionally replaces the rule set, bypassing the filter
// editor's incremental API. Any bulk-edit selection is cleared first so it
// cannot leak across the filter change.
func (c *Controller) QuickFilter(rules []filter.Rule) {
	if c.closed {
		return
	}
	c.list.SelectNone()
	c.RulesChanged(rules)
}

// AddTag clears the selection and asynchronously adds a tag criterion to
// the existing rule set through the filter editor.
func (c *Controller) AddTag(id int64) {
	c.addCriterion(func() { c.editor.AddTag(id) })
}

// AddCorrespondent clears the selection and asynchronously adds a
// correspondent criterion through the filter editor.
func (c *Controller) AddCorrespondent(id int64) {
	c.addCriterion(func() { c.editor.AddCorrespondent(id) })
}

// AddDocumentType clears the selection and asynchronously adds a document
// type criterion through the filter editor.
func (c *Controller) AddDocumentType(id int64) {
	c.addCriterion(func() { c.editor.AddDocumentType(id) })
}

func (c *Controller) addCriterion(apply func()) {
	if c.closed || c.editor == nil {
		return
	}
	c.list.SelectNone()
	c.async(func() {
		if !c.closed {
			apply()
		}
	})
}

// IsDirty reports whether the active saved view has unsaved rule changes.
// The comparison is structural and order-sensitive; without an active view
// there is nothing to be dirty against.
func (c *Controller) IsDirty() bool {
	if c.activeView == nil {
		return false
	}
	return !filter.RulesEqual(c.list.FilterRules(), c.unmodified)
}

// ActiveView returns the active saved view, or nil under ad-hoc authority.
func (c *Controller) ActiveView() *views.SavedView {
	return c.activeView
}

// SaveView patches the active saved view with the current rules and sort
// order. On success the dirty snapshot is refreshed. Validation errors
// propagate to the caller; the controller's state is untouched by them.
func (c *Controller) SaveView() error {
	if c.activeView == nil {
		return eris.New("no active saved view")
	}
	updated := *c.activeView
	updated.FilterRules = c.list.FilterRules()
	updated.SortField = c.list.SortField()
	updated.SortReverse = c.list.SortReverse()

	saved, err := c.views.Patch(&updated)
	if err != nil {
		return err
	}
	c.activeView = saved
	c.unmodified = filter.CloneRules(saved.FilterRules)
	return nil
}

// SaveViewAs creates a new saved view from the current state and navigates
// to its route on success. Validation errors propagate to the caller so
// the save dialog can stay open and surface them.
func (c *Controller) SaveViewAs(name string, showOnDashboard, showInSidebar bool) (*views.SavedView, error) {
	v := &views.SavedView{
		Name:            name,
		FilterRules:     c.list.FilterRules(),
		SortField:       c.list.SortField(),
		SortReverse:     c.list.SortReverse(),
		ShowOnDashboard: showOnDashboard,
		ShowInSidebar:   showInSidebar,
	}
	created, err := c.views.Create(v)
	if err != nil {
		return nil, err
	}
	c.nav.OpenSavedView(created.ID)
	return created, nil
}

// RefreshDocuments is a pure refresh: documents changed underneath the
// list, so reload, but touch neither authority nor rules nor selection.
// The consumption signal lands here.
func (c *Controller) RefreshDocuments() {
	if c.closed {
		return
	}
	if err := c.list.Reload(); err != nil {
		c.notify.Error("failed to refresh documents", err)
	}
}
