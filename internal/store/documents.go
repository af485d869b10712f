package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/paperdeck/paperdeck/internal/filter"
)

// Document is one archived document with its metadata.
type Document struct {
	ID                  int64
	Title               string
	Content             string
	CorrespondentID     *int64
	DocumentTypeID      *int64
	StoragePathID       *int64
	ArchiveSerialNumber *int64
	SourcePath          string
	Created             time.Time
	Added               time.Time
	TagIDs              []int64
}

// DocumentSummary is the list-rendering projection of a document.
type DocumentSummary struct {
	ID            int64
	Title         string
	Correspondent string
	DocumentType  string
	Created       time.Time
	Added         time.Time
}

// Sort fields accepted by SearchDocuments, mapped to whitelisted columns.
// Anything outside this map falls back to created to keep user-supplied
// sort strings out of the SQL text.
var sortColumns = map[string]string{
	"title":                 "d.title",
	"created":               "d.created",
	"added":                 "d.added",
	"correspondent":         "c.name",
	"document_type":         "dt.name",
	"archive_serial_number": "d.archive_serial_number",
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// AddDocument inserts a document and its tag links, returning the new ID.
func (s *Store) AddDocument(doc *Document) (int64, error) {
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO documents (title, content, correspondent_id, document_type_id,
				storage_path_id, archive_serial_number, source_path, created, added)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.Title, doc.Content, doc.CorrespondentID, doc.DocumentTypeID,
			doc.StoragePathID, doc.ArchiveSerialNumber, doc.SourcePath,
			doc.Created.UTC().Format(timeLayout), doc.Added.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		for _, tagID := range doc.TagIDs {
			if _, err := tx.Exec(
				`INSERT INTO document_tags (document_id, tag_id) VALUES (?, ?)`,
				id, tagID); err != nil {
				return fmt.Errorf("link tag %d: %w", tagID, err)
			}
		}
		return nil
	})
	return id, err
}

// GetDocument loads one document by ID, or nil if it does not exist.
func (s *Store) GetDocument(id int64) (*Document, error) {
	doc := &Document{}
	var created, added string
	err := s.db.QueryRow(`
		SELECT id, title, content, correspondent_id, document_type_id,
			storage_path_id, archive_serial_number, COALESCE(source_path, ''),
			created, added
		FROM documents WHERE id = ?`, id).Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.CorrespondentID,
		&doc.DocumentTypeID, &doc.StoragePathID, &doc.ArchiveSerialNumber,
		&doc.SourcePath, &created, &added)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	doc.Created, _ = time.Parse(timeLayout, created)
	doc.Added, _ = time.Parse(timeLayout, added)

	rows, err := s.db.Query(
		`SELECT tag_id FROM document_tags WHERE document_id = ? ORDER BY tag_id`, id)
	if err != nil {
		return nil, fmt.Errorf("get document tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tagID int64
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		doc.TagIDs = append(doc.TagIDs, tagID)
	}
	return doc, rows.Err()
}

// SearchDocuments returns document summaries matching the given rules,
// ordered by sortField (reversed when sortReverse). Rules of different
// types combine with AND; tag rules all have to hold (tags__id__all
// semantics); the downstream meaning of multi-valued rules is otherwise
// the query layer's decision, made here.
func (s *Store) SearchDocuments(rules []filter.Rule, sortField string, sortReverse bool) ([]DocumentSummary, error) {
	where, args, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	col, ok := sortColumns[sortField]
	if !ok {
		col = sortColumns["created"]
	}
	dir := "ASC"
	if sortReverse {
		dir = "DESC"
	}

	q := fmt.Sprintf(`
		SELECT d.id, d.title, COALESCE(c.name, ''), COALESCE(dt.name, ''),
			d.created, d.added
		FROM documents d
		LEFT JOIN correspondents c ON c.id = d.correspondent_id
		LEFT JOIN document_types dt ON dt.id = d.document_type_id
		%s
		ORDER BY %s %s, d.id %s`, where, col, dir, dir)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		var created, added string
		if err := rows.Scan(&d.ID, &d.Title, &d.Correspondent, &d.DocumentType, &created, &added); err != nil {
			return nil, err
		}
		d.Created, _ = time.Parse(timeLayout, created)
		d.Added, _ = time.Parse(timeLayout, added)
		out = append(out, d)
	}
	return out, rows.Err()
}

// HasDocumentWithSource reports whether a document was already imported
// from the given source path.
func (s *Store) HasDocumentWithSource(path string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE source_path = ?`, path).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check source path: %w", err)
	}
	return n > 0, nil
}

// CountDocuments returns the total number of stored documents.
func (s *Store) CountDocuments() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// compileRules translates a rule list into a WHERE clause and arguments.
func compileRules(rules []filter.Rule) (string, []interface{}, error) {
	var preds []string
	var args []interface{}

	for _, r := range rules {
		switch r.Type {
		case filter.RuleTitle:
			preds = append(preds, "d.title LIKE ?")
			args = append(args, "%"+r.Value+"%")
		case filter.RuleContent:
			preds = append(preds, "d.content LIKE ?")
			args = append(args, "%"+r.Value+"%")
		case filter.RuleTagsAll:
			preds = append(preds,
				"EXISTS (SELECT 1 FROM document_tags t WHERE t.document_id = d.id AND t.tag_id = ?)")
			args = append(args, r.Value)
		case filter.RuleCorrespondent:
			preds = append(preds, "d.correspondent_id = ?")
			args = append(args, r.Value)
		case filter.RuleDocumentType:
			preds = append(preds, "d.document_type_id = ?")
			args = append(args, r.Value)
		case filter.RuleStoragePath:
			preds = append(preds, "d.storage_path_id = ?")
			args = append(args, r.Value)
		case filter.RuleCreatedAfter:
			preds = append(preds, "d.created > ?")
			args = append(args, r.Value)
		case filter.RuleCreatedBefore:
			preds = append(preds, "d.created < ?")
			args = append(args, r.Value)
		case filter.RuleAddedAfter:
			preds = append(preds, "d.added > ?")
			args = append(args, r.Value)
		case filter.RuleAddedBefore:
			preds = append(preds, "d.added < ?")
			args = append(args, r.Value)
		case filter.RuleASN:
			preds = append(preds, "d.archive_serial_number = ?")
			args = append(args, r.Value)
		case filter.RuleFullText:
			preds = append(preds, "(d.title LIKE ? OR d.content LIKE ?)")
			args = append(args, "%"+r.Value+"%", "%"+r.Value+"%")
		case filter.RuleMoreLike:
			// Documents sharing at least one tag with the reference
			// document, excluding the reference itself.
			preds = append(preds, `d.id != ? AND EXISTS (
				SELECT 1 FROM document_tags a
				JOIN document_tags b ON a.tag_id = b.tag_id
				WHERE a.document_id = d.id AND b.document_id = ?)`)
			args = append(args, r.Value, r.Value)
		default:
			return "", nil, fmt.Errorf("unsupported rule type %d", r.Type)
		}
	}

	if len(preds) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(preds, " AND "), args, nil
}
