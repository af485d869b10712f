package store

import (
	"database/sql"
	"fmt"

	"github.com/paperdeck/paperdeck/internal/filter"
)

// SavedView is a persisted named bundle of filter rules, sort order, and
// display flags. Rule order is preserved exactly as saved.
type SavedView struct {
	ID              int64
	Name            string
	FilterRules     []filter.Rule
	SortField       string
	SortReverse     bool
	ShowOnDashboard bool
	ShowInSidebar   bool
}

// ErrDuplicateViewName reports a saved-view name collision.
var ErrDuplicateViewName = fmt.Errorf("saved view name already exists")

// CreateSavedView inserts a view and its rules, returning the new ID.
func (s *Store) CreateSavedView(v *SavedView) (int64, error) {
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO saved_views (name, sort_field, sort_reverse, show_on_dashboard, show_in_sidebar)
			VALUES (?, ?, ?, ?, ?)`,
			v.Name, v.SortField, v.SortReverse, v.ShowOnDashboard, v.ShowInSidebar)
		if err != nil {
			if isConstraintError(err) {
				return ErrDuplicateViewName
			}
			return fmt.Errorf("insert saved view: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		return insertViewRules(tx, id, v.FilterRules)
	})
	return id, err
}

// GetSavedView loads one view with its rules, or nil if it does not exist.
func (s *Store) GetSavedView(id int64) (*SavedView, error) {
	v := &SavedView{}
	err := s.db.QueryRow(`
		SELECT id, name, sort_field, sort_reverse, show_on_dashboard, show_in_sidebar
		FROM saved_views WHERE id = ?`, id).Scan(
		&v.ID, &v.Name, &v.SortField, &v.SortReverse, &v.ShowOnDashboard, &v.ShowInSidebar)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get saved view %d: %w", id, err)
	}

	rules, err := s.viewRules(id)
	if err != nil {
		return nil, err
	}
	v.FilterRules = rules
	return v, nil
}

// UpdateSavedView replaces the stored view and its rule list wholesale.
func (s *Store) UpdateSavedView(v *SavedView) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE saved_views
			SET name = ?, sort_field = ?, sort_reverse = ?, show_on_dashboard = ?, show_in_sidebar = ?
			WHERE id = ?`,
			v.Name, v.SortField, v.SortReverse, v.ShowOnDashboard, v.ShowInSidebar, v.ID)
		if err != nil {
			if isConstraintError(err) {
				return ErrDuplicateViewName
			}
			return fmt.Errorf("update saved view %d: %w", v.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("saved view %d does not exist", v.ID)
		}
		if _, err := tx.Exec(`DELETE FROM saved_view_rules WHERE view_id = ?`, v.ID); err != nil {
			return fmt.Errorf("clear saved view rules: %w", err)
		}
		return insertViewRules(tx, v.ID, v.FilterRules)
	})
}

// DeleteSavedView removes a view; deleting a missing view is a no-op.
func (s *Store) DeleteSavedView(id int64) error {
	_, err := s.db.Exec(`DELETE FROM saved_views WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved view %d: %w", id, err)
	}
	return nil
}

// ListSavedViews returns all views with their rules, ordered by name.
func (s *Store) ListSavedViews() ([]SavedView, error) {
	rows, err := s.db.Query(`
		SELECT id, name, sort_field, sort_reverse, show_on_dashboard, show_in_sidebar
		FROM saved_views ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list saved views: %w", err)
	}
	defer rows.Close()

	var views []SavedView
	for rows.Next() {
		var v SavedView
		if err := rows.Scan(&v.ID, &v.Name, &v.SortField, &v.SortReverse,
			&v.ShowOnDashboard, &v.ShowInSidebar); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		rules, err := s.viewRules(views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].FilterRules = rules
	}
	return views, nil
}

func insertViewRules(tx *sql.Tx, viewID int64, rules []filter.Rule) error {
	for i, r := range rules {
		if _, err := tx.Exec(`
			INSERT INTO saved_view_rules (view_id, position, rule_type, value)
			VALUES (?, ?, ?, ?)`, viewID, i, int(r.Type), r.Value); err != nil {
			return fmt.Errorf("insert view rule %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) viewRules(viewID int64) ([]filter.Rule, error) {
	rows, err := s.db.Query(`
		SELECT rule_type, value FROM saved_view_rules
		WHERE view_id = ? ORDER BY position`, viewID)
	if err != nil {
		return nil, fmt.Errorf("get view rules: %w", err)
	}
	defer rows.Close()

	var rules []filter.Rule
	for rows.Next() {
		var t int
		var val string
		if err := rows.Scan(&t, &val); err != nil {
			return nil, err
		}
		rules = append(rules, filter.Rule{Type: filter.RuleType(t), Value: val})
	}
	return rules, rows.Err()
}
