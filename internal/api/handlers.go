package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/views"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// DocumentResponse represents a document in list responses.
type DocumentResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Correspondent string `json:"correspondent,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`
	Created       string `json:"created"`
	Added         string `json:"added"`
}

// DocumentDetail represents a full document response.
type DocumentDetail struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	Content             string  `json:"content"`
	CorrespondentID     *int64  `json:"correspondent_id,omitempty"`
	DocumentTypeID      *int64  `json:"document_type_id,omitempty"`
	StoragePathID       *int64  `json:"storage_path_id,omitempty"`
	ArchiveSerialNumber *int64  `json:"archive_serial_number,omitempty"`
	TagIDs              []int64 `json:"tags"`
	Created             string  `json:"created"`
	Added               string  `json:"added"`
}

// FilterRuleDTO is the wire form of one filter rule.
type FilterRuleDTO struct {
	RuleType int    `json:"rule_type"`
	Value    string `json:"value"`
}

// SavedViewDTO is the wire form of a saved view.
type SavedViewDTO struct {
	ID              int64           `json:"id,omitempty"`
	Name            string          `json:"name"`
	FilterRules     []FilterRuleDTO `json:"filter_rules"`
	SortField       string          `json:"sort_field"`
	SortReverse     bool            `json:"sort_reverse"`
	ShowOnDashboard bool            `json:"show_on_dashboard"`
	ShowInSidebar   bool            `json:"show_in_sidebar"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// handleListDocuments serves the document list filtered by the catalog's
// query parameters: e.g. /api/v1/documents?tags__id__all=3,4&title=tax.
// The ordering parameter names a sort field, with a leading '-' reversing.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	rules, err := s.codec.Decode(r.URL.Query())
	if err != nil {
		// Catalog inconsistency is a server defect, never user input.
		s.logger.Error("filter decode failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Filter configuration error")
		return
	}

	sortField, sortReverse := parseOrdering(r.URL.Query().Get("ordering"))
	s.serveDocuments(w, rules, sortField, sortReverse)
}

// handleViewDocuments serves the document list scoped to a saved view. The
// view's rules and sort order apply; query parameters are ignored, matching
// the precedence rule that a saved-view segment beats ad-hoc parameters.
func (s *Server) handleViewDocuments(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadView(w, r)
	if !ok {
		return
	}
	s.serveDocuments(w, v.FilterRules, v.SortField, v.SortReverse)
}

func (s *Server) serveDocuments(w http.ResponseWriter, rules []filter.Rule, sortField string, sortReverse bool) {
	docs, err := s.store.SearchDocuments(rules, sortField, sortReverse)
	if err != nil {
		s.logger.Error("failed to search documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentResponse{
			ID:            d.ID,
			Title:         d.Title,
			Correspondent: d.Correspondent,
			DocumentType:  d.DocumentType,
			Created:       d.Created.Format(time.RFC3339),
			Added:         d.Added.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"results": out,
	})
}

// handleGetDocument returns one document with full content.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Document ID must be a number")
		return
	}

	doc, err := s.store.GetDocument(id)
	if err != nil {
		s.logger.Error("failed to get document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve document")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "not_found", "Document not found")
		return
	}

	writeJSON(w, http.StatusOK, DocumentDetail{
		ID:                  doc.ID,
		Title:               doc.Title,
		Content:             doc.Content,
		CorrespondentID:     doc.CorrespondentID,
		DocumentTypeID:      doc.DocumentTypeID,
		StoragePathID:       doc.StoragePathID,
		ArchiveSerialNumber: doc.ArchiveSerialNumber,
		TagIDs:              doc.TagIDs,
		Created:             doc.Created.Format(time.RFC3339),
		Added:               doc.Added.Format(time.RFC3339),
	})
}

// handleListViews returns all saved views.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	all, err := s.views.All()
	if err != nil {
		s.logger.Error("failed to list saved views", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve saved views")
		return
	}
	out := make([]SavedViewDTO, 0, len(all))
	for i := range all {
		out = append(out, viewToDTO(&all[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"results": out,
	})
}

// handleGetView returns one saved view.
func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewToDTO(v))
}

// handleCreateView creates a saved view. Validation failures return 400
// with a field-keyed payload.
func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var dto SavedViewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON")
		return
	}

	created, err := s.views.Create(dtoToView(&dto))
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewToDTO(created))
}

// handlePatchView updates a saved view.
func (s *Server) handlePatchView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadView(w, r)
	if !ok {
		return
	}

	var dto SavedViewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON")
		return
	}
	update := dtoToView(&dto)
	update.ID = v.ID

	patched, err := s.views.Patch(update)
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToDTO(patched))
}

// handleDeleteView deletes a saved view.
func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadView(w, r)
	if !ok {
		return
	}
	if err := s.views.Delete(v.ID); err != nil {
		s.logger.Error("failed to delete saved view", "id", v.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete saved view")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadView resolves the {id} route param to a saved view, writing the
// error response itself when resolution fails.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) (*views.SavedView, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Saved view ID must be a number")
		return nil, false
	}
	v, err := s.views.GetCached(id)
	if err != nil {
		if eris.Is(err, views.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Saved view not found")
			return nil, false
		}
		s.logger.Error("failed to get saved view", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve saved view")
		return nil, false
	}
	return v, true
}

func (s *Server) writeViewError(w http.ResponseWriter, err error) {
	var verr *views.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
		return
	}
	s.logger.Error("saved view operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Saved view operation failed")
}

func viewToDTO(v *views.SavedView) SavedViewDTO {
	rules := make([]FilterRuleDTO, 0, len(v.FilterRules))
	for _, r := range v.FilterRules {
		rules = append(rules, FilterRuleDTO{RuleType: int(r.Type), Value: r.Value})
	}
	return SavedViewDTO{
		ID:              v.ID,
		Name:            v.Name,
		FilterRules:     rules,
		SortField:       v.SortField,
		SortReverse:     v.SortReverse,
		ShowOnDashboard: v.ShowOnDashboard,
		ShowInSidebar:   v.ShowInSidebar,
	}
}

func dtoToView(dto *SavedViewDTO) *views.SavedView {
	rules := make([]filter.Rule, 0, len(dto.FilterRules))
	for _, r := range dto.FilterRules {
		rules = append(rules, filter.Rule{Type: filter.RuleType(r.RuleType), Value: r.Value})
	}
	sortField := dto.SortField
	if strings.TrimSpace(sortField) == "" {
		sortField = "created"
	}
	return &views.SavedView{
		ID:              dto.ID,
		Name:            dto.Name,
		FilterRules:     rules,
		SortField:       sortField,
		SortReverse:     dto.SortReverse,
		ShowOnDashboard: dto.ShowOnDashboard,
		ShowInSidebar:   dto.ShowInSidebar,
	}
}

// parseOrdering splits an ordering parameter like "-created" into field
// and direction. Empty input keeps the default ordering.
func parseOrdering(ordering string) (string, bool) {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return "created", true
	}
	if strings.HasPrefix(ordering, "-") {
		return strings.TrimPrefix(ordering, "-"), true
	}
	return ordering, false
}
