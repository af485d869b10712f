// Package filter defines structured filter rules for the document list and
// the codec between rule lists and URL query parameters.
package filter

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// RuleType identifies one kind of filter predicate.
type RuleType int

const (
	RuleTitle RuleType = iota
	RuleContent
	RuleTagsAll
	RuleCorrespondent
	RuleDocumentType
	RuleStoragePath
	RuleCreatedAfter
	RuleCreatedBefore
	RuleAddedAfter
	RuleAddedBefore
	RuleASN
	RuleFullText
	RuleMoreLike
)

// Rule is one filter predicate constraining the document collection.
// Multiple rules combine with AND semantics; repeated tag rules each add
// a required tag, matching the tags__id__all parameter name.
type Rule struct {
	Type  RuleType
	Value string
}

// ErrUnknownRuleType reports a rule type or filter variable that is not in
// the catalog. Every rule constructed by this package is catalog-backed, so
// hitting this error means a configuration defect, not bad user input.
var ErrUnknownRuleType = eris.New("unknown filter rule type")

// TypeInfo describes one catalog entry: a rule kind, its canonical query
// parameter name, and whether one parameter value may carry several
// comma-joined rule values.
type TypeInfo struct {
	ID    RuleType
	Var   string
	Multi bool
}

// Catalog is the immutable set of known rule types. It is built once at
// process start and injected wherever rule lookup is needed.
type Catalog struct {
	entries []TypeInfo
	byVar   map[string]TypeInfo
	byID    map[RuleType]TypeInfo
}

// NewCatalog builds a catalog from the given entries. Duplicate IDs or
// filter variables are rejected.
func NewCatalog(entries []TypeInfo) (*Catalog, error) {
	c := &Catalog{
		entries: make([]TypeInfo, len(entries)),
		byVar:   make(map[string]TypeInfo, len(entries)),
		byID:    make(map[RuleType]TypeInfo, len(entries)),
	}
	copy(c.entries, entries)
	for _, e := range entries {
		if _, dup := c.byVar[e.Var]; dup {
			return nil, eris.Errorf("duplicate filter variable %q", e.Var)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, eris.Errorf("duplicate rule type %d", e.ID)
		}
		c.byVar[e.Var] = e
		c.byID[e.ID] = e
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on error. Intended for the
// package-level default catalog only.
func MustCatalog(entries []TypeInfo) *Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(fmt.Sprintf("filter: invalid catalog: %v", err))
	}
	return c
}

// ByVar looks up a catalog entry by its query parameter name.
func (c *Catalog) ByVar(v string) (TypeInfo, error) {
	e, ok := c.byVar[v]
	if !ok {
		return TypeInfo{}, eris.Wrapf(ErrUnknownRuleType, "filter variable %q", v)
	}
	return e, nil
}

// ByID looks up a catalog entry by rule type.
func (c *Catalog) ByID(id RuleType) (TypeInfo, error) {
	e, ok := c.byID[id]
	if !ok {
		return TypeInfo{}, eris.Wrapf(ErrUnknownRuleType, "rule type %d", id)
	}
	return e, nil
}

// Types returns the catalog entries in declaration order.
func (c *Catalog) Types() []TypeInfo {
	out := make([]TypeInfo, len(c.entries))
	copy(out, c.entries)
	return out
}

var defaultCatalog = MustCatalog([]TypeInfo{
	{ID: RuleTitle, Var: "title"},
	{ID: RuleContent, Var: "content"},
	{ID: RuleTagsAll, Var: "tags__id__all", Multi: true},
	{ID: RuleCorrespondent, Var: "correspondent__id"},
	{ID: RuleDocumentType, Var: "document_type__id"},
	{ID: RuleStoragePath, Var: "storage_path__id"},
	{ID: RuleCreatedAfter, Var: "created__date__gt"},
	{ID: RuleCreatedBefore, Var: "created__date__lt"},
	{ID: RuleAddedAfter, Var: "added__date__gt"},
	{ID: RuleAddedBefore, Var: "added__date__lt"},
	{ID: RuleASN, Var: "archive_serial_number"},
	{ID: RuleFullText, Var: "query"},
	{ID: RuleMoreLike, Var: "more_like_id"},
})

// DefaultCatalog returns the canonical rule-type catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// RulesEqual reports whether two rule lists are structurally equal, in
// order. Order is significant: the same rules in a different order compare
// unequal, which the dirty-state check relies on.
func RulesEqual(a, b []Rule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CloneRules returns a copy of the given rule list. Rule values are plain
// strings, so a shallow copy is a full copy.
func CloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
