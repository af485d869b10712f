// Package views manages saved views: persistence, a read-through cache,
// and the validation surface used by the save dialog.
package views

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/paperdeck/paperdeck/internal/store"
)

// SavedView is an alias for store.SavedView — single source of truth.
type SavedView = store.SavedView

// ErrNotFound reports a saved view that does not exist (deleted, or never
// created). Callers treat this as terminal for the activation attempt.
var ErrNotFound = eris.New("saved view not found")

// ValidationError carries a field-keyed payload for create/patch failures.
// The save dialog surfaces it and stays open; it is not a storage fault.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return "invalid saved view: " + strings.Join(parts, ", ")
}

// Storage is the persistence surface the service needs from the store.
type Storage interface {
	CreateSavedView(v *SavedView) (int64, error)
	GetSavedView(id int64) (*SavedView, error)
	UpdateSavedView(v *SavedView) error
	DeleteSavedView(id int64) error
	ListSavedViews() ([]SavedView, error)
}

// Service provides cached access to saved views. The cache is read-through:
// callers get a reference they must treat as read-only and replace, never
// mutate in place.
type Service struct {
	storage Storage
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[int64]*SavedView
}

// NewService creates a saved-view service over the given storage.
func NewService(storage Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		storage: storage,
		logger:  logger,
		cache:   make(map[int64]*SavedView),
	}
}

// GetCached returns the view with the given ID, preferring the cache.
// Returns ErrNotFound when the view does not exist.
func (s *Service) GetCached(id int64) (*SavedView, error) {
	s.mu.Lock()
	if v, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err := s.storage.GetSavedView(id)
	if err != nil {
		return nil, fmt.Errorf("fetch saved view %d: %w", id, err)
	}
	if v == nil {
		return nil, eris.Wrapf(ErrNotFound, "id %d", id)
	}

	s.mu.Lock()
	s.cache[id] = v
	s.mu.Unlock()
	return v, nil
}

// Create validates and persists a new view, returning the stored copy.
func (s *Service) Create(v *SavedView) (*SavedView, error) {
	if verr := validate(v); verr != nil {
		return nil, verr
	}
	id, err := s.storage.CreateSavedView(v)
	if err != nil {
		if eris.Is(err, store.ErrDuplicateViewName) {
			return nil, &ValidationError{Fields: map[string][]string{
				"name": {"a view with this name already exists"},
			}}
		}
		return nil, fmt.Errorf("create saved view: %w", err)
	}

	created := *v
	created.ID = id
	s.mu.Lock()
	s.cache[id] = &created
	s.mu.Unlock()
	s.logger.Info("saved view created", "id", id, "name", created.Name)
	return &created, nil
}

// Patch persists changes to an existing view and refreshes the cache.
func (s *Service) Patch(v *SavedView) (*SavedView, error) {
	if verr := validate(v); verr != nil {
		return nil, verr
	}
	if err := s.storage.UpdateSavedView(v); err != nil {
		if eris.Is(err, store.ErrDuplicateViewName) {
			return nil, &ValidationError{Fields: map[string][]string{
				"name": {"a view with this name already exists"},
			}}
		}
		return nil, fmt.Errorf("patch saved view %d: %w", v.ID, err)
	}

	patched := *v
	s.mu.Lock()
	s.cache[v.ID] = &patched
	s.mu.Unlock()
	s.logger.Info("saved view patched", "id", v.ID, "name", v.Name)
	return &patched, nil
}

// Delete removes a view and evicts it from the cache.
func (s *Service) Delete(id int64) error {
	if err := s.storage.DeleteSavedView(id); err != nil {
		return fmt.Errorf("delete saved view %d: %w", id, err)
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	s.logger.Info("saved view deleted", "id", id)
	return nil
}

// All returns every saved view, refreshing the cache as a side effect.
func (s *Service) All() ([]SavedView, error) {
	views, err := s.storage.ListSavedViews()
	if err != nil {
		return nil, fmt.Errorf("list saved views: %w", err)
	}
	s.mu.Lock()
	for i := range views {
		v := views[i]
		s.cache[v.ID] = &v
	}
	s.mu.Unlock()
	return views, nil
}

// Sidebar returns the views flagged for the sidebar.
func (s *Service) Sidebar() ([]SavedView, error) {
	return s.filtered(func(v SavedView) bool { return v.ShowInSidebar })
}

// Dashboard returns the views flagged for the dashboard.
func (s *Service) Dashboard() ([]SavedView, error) {
	return s.filtered(func(v SavedView) bool { return v.ShowOnDashboard })
}

func (s *Service) filtered(keep func(SavedView) bool) ([]SavedView, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []SavedView
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func validate(v *SavedView) *ValidationError {
	fields := make(map[string][]string)
	if strings.TrimSpace(v.Name) == "" {
		fields["name"] = append(fields["name"], "name must not be empty")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
