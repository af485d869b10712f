package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/paperdeck/paperdeck/internal/filter"
	"github.com/paperdeck/paperdeck/internal/store"
)

// MetadataResolver resolves tag, correspondent, and document type IDs to
// names for display. *store.Store satisfies it.
type MetadataResolver interface {
	ListTags() ([]store.NamedRef, error)
	ListCorrespondents() ([]store.NamedRef, error)
	ListDocumentTypes() ([]store.NamedRef, error)
}

// Editor holds the working rule set the user edits interactively. Every
// user-driven mutation emits the complete rule list to observers; SetRules
// pushes state in without emitting, so controller-driven updates cannot
// loop back as edits.
type Editor struct {
	mu        sync.Mutex
	meta      MetadataResolver
	rules     []filter.Rule
	nextID    int
	observers map[int]func([]filter.Rule)
}

// NewEditor creates an empty editor. meta may be nil; filter names then
// fall back to raw IDs.
func NewEditor(meta MetadataResolver) *Editor {
	return &Editor{
		meta:      meta,
		observers: make(map[int]func([]filter.Rule)),
	}
}

// Observe registers fn to receive the rule list after every user edit and
// returns an idempotent cancel function.
func (e *Editor) Observe(fn func([]filter.Rule)) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.observers[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

// SetRules replaces the working rule set without emitting.
func (e *Editor) SetRules(rules []filter.Rule) {
	e.mu.Lock()
	e.rules = filter.CloneRules(rules)
	e.mu.Unlock()
}

// Rules returns a copy of the working rule set.
func (e *Editor) Rules() []filter.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return filter.CloneRules(e.rules)
}

// AddTag adds a required-tag criterion and emits. Adding a tag already in
// the rule set is a no-op.
func (e *Editor) AddTag(id int64) {
	value := strconv.FormatInt(id, 10)
	e.mu.Lock()
	for _, r := range e.rules {
		if r.Type == filter.RuleTagsAll && r.Value == value {
			e.mu.Unlock()
			return
		}
	}
	e.rules = append(e.rules, filter.Rule{Type: filter.RuleTagsAll, Value: value})
	e.mu.Unlock()
	e.emit()
}

// AddCorrespondent sets the correspondent criterion, replacing any
// existing one, and emits.
func (e *Editor) AddCorrespondent(id int64) {
	e.replaceSingle(filter.RuleCorrespondent, strconv.FormatInt(id, 10))
}

// AddDocumentType sets the document type criterion, replacing any existing
// one, and emits.
func (e *Editor) AddDocumentType(id int64) {
	e.replaceSingle(filter.RuleDocumentType, strconv.FormatInt(id, 10))
}

// SetTextQuery sets the full-text criterion, replacing any existing one,
// and emits. An empty query removes the criterion.
func (e *Editor) SetTextQuery(q string) {
	q = strings.TrimSpace(q)
	e.mu.Lock()
	out := e.rules[:0]
	for _, r := range e.rules {
		if r.Type != filter.RuleFullText {
			out = append(out, r)
		}
	}
	if q != "" {
		out = append(out, filter.Rule{Type: filter.RuleFullText, Value: q})
	}
	e.rules = out
	e.mu.Unlock()
	e.emit()
}

// Clear empties the rule set and emits.
func (e *Editor) Clear() {
	e.mu.Lock()
	e.rules = nil
	e.mu.Unlock()
	e.emit()
}

func (e *Editor) replaceSingle(t filter.RuleType, value string) {
	e.mu.Lock()
	out := e.rules[:0]
	for _, r := range e.rules {
		if r.Type != t {
			out = append(out, r)
		}
	}
	e.rules = append(out, filter.Rule{Type: t, Value: value})
	e.mu.Unlock()
	e.emit()
}

func (e *Editor) emit() {
	e.mu.Lock()
	rules := filter.CloneRules(e.rules)
	fns := make([]func([]filter.Rule), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(rules)
	}
}

// GenerateFilterName describes the current rule set in words, suitable as
// a default name when saving the filter as a view. Returns "" for an empty
// rule set.
func (e *Editor) GenerateFilterName() string {
	rules := e.Rules()
	if len(rules) == 0 {
		return ""
	}

	var parts []string
	for _, r := range rules {
		switch r.Type {
		case filter.RuleCorrespondent:
			parts = append(parts, "Correspondent: "+e.resolveName(r.Type, r.Value))
		case filter.RuleDocumentType:
			parts = append(parts, "Type: "+e.resolveName(r.Type, r.Value))
		case filter.RuleTagsAll:
			parts = append(parts, "Tag: "+e.resolveName(r.Type, r.Value))
		case filter.RuleTitle:
			parts = append(parts, "Title: "+r.Value)
		case filter.RuleFullText:
			parts = append(parts, "Search: "+r.Value)
		case filter.RuleASN:
			parts = append(parts, "ASN: "+r.Value)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ")
}

// resolveName maps a criterion ID to its display name, falling back to
// "#<id>" when the resolver is missing or the ID is unknown.
func (e *Editor) resolveName(t filter.RuleType, value string) string {
	fallback := "#" + value
	if e.meta == nil {
		return fallback
	}

	var refs []store.NamedRef
	var err error
	switch t {
	case filter.RuleTagsAll:
		refs, err = e.meta.ListTags()
	case filter.RuleCorrespondent:
		refs, err = e.meta.ListCorrespondents()
	case filter.RuleDocumentType:
		refs, err = e.meta.ListDocumentTypes()
	default:
		return fallback
	}
	if err != nil {
		return fallback
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	for _, ref := range refs {
		if ref.ID == id {
			return ref.Name
		}
	}
	return fallback
}
