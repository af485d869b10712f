package store

import (
	"database/sql"
	"fmt"
)

// NamedRef is an id/name pair for tags, correspondents, and document types.
type NamedRef struct {
	ID   int64
	Name string
}

// EnsureTag returns the ID of the tag with the given name, creating it if
// needed.
func (s *Store) EnsureTag(name string) (int64, error) {
	return s.ensureNamed("tags", name)
}

// EnsureCorrespondent returns the ID of the named correspondent, creating
// it if needed.
func (s *Store) EnsureCorrespondent(name string) (int64, error) {
	return s.ensureNamed("correspondents", name)
}

// EnsureDocumentType returns the ID of the named document type, creating it
// if needed.
func (s *Store) EnsureDocumentType(name string) (int64, error) {
	return s.ensureNamed("document_types", name)
}

func (s *Store) ensureNamed(table, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup %s %q: %w", table, name, err)
	}
	res, err := s.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (name) VALUES (?)`, table), name)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	return res.LastInsertId()
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags() ([]NamedRef, error) {
	return s.listNamed("tags")
}

// ListCorrespondents returns all correspondents ordered by name.
func (s *Store) ListCorrespondents() ([]NamedRef, error) {
	return s.listNamed("correspondents")
}

// ListDocumentTypes returns all document types ordered by name.
func (s *Store) ListDocumentTypes() ([]NamedRef, error) {
	return s.listNamed("document_types")
}

func (s *Store) listNamed(table string) ([]NamedRef, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []NamedRef
	for rows.Next() {
		var r NamedRef
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
