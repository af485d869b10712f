package filter

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Codec converts between ordered rule lists and flat URL query parameters.
// The zero value is not usable; construct with NewCodec.
type Codec struct {
	catalog *Catalog
}

// NewCodec returns a codec bound to the given catalog. A nil catalog falls
// back to the default one.
func NewCodec(catalog *Catalog) *Codec {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Codec{catalog: catalog}
}

// Decode maps query parameters to an ordered rule list.
//
// Only parameters named by the catalog are considered; anything else is
// ignored so that unrecognized parameters stay forward-compatible. For a
// multi-value type, a comma-joined value expands into one rule per
// segment, all sharing the same type, in left-to-right order and without
// deduplication. Single-value types keep their value verbatim, commas
// included.
func (c *Codec) Decode(params url.Values) ([]Rule, error) {
	var rules []Rule
	for _, info := range c.catalog.Types() {
		if !params.Has(info.Var) {
			continue
		}
		raw := params.Get(info.Var)
		// Re-resolve through the catalog: a mismatch between the
		// iteration set and the lookup table is a configuration
		// defect and must surface, not drop the rule.
		resolved, err := c.catalog.ByVar(info.Var)
		if err != nil {
			return nil, eris.Wrap(err, "decode filter parameters")
		}
		if !resolved.Multi {
			rules = append(rules, Rule{Type: resolved.ID, Value: raw})
			continue
		}
		for _, segment := range strings.Split(raw, ",") {
			rules = append(rules, Rule{Type: resolved.ID, Value: segment})
		}
	}
	return rules, nil
}

// Encode maps an ordered rule list back to query parameters. Rules sharing
// a multi-value type are re-joined into one comma-separated value, grouped
// in order of first appearance; for single-value types the last rule wins.
// A rule whose type is not in the catalog is an ErrUnknownRuleType, never
// silently skipped.
func (c *Codec) Encode(rules []Rule) (url.Values, error) {
	params := url.Values{}
	joined := make(map[string][]string, len(rules))
	var order []string
	for _, r := range rules {
		info, err := c.catalog.ByID(r.Type)
		if err != nil {
			return nil, eris.Wrap(err, "encode filter rules")
		}
		if _, seen := joined[info.Var]; !seen {
			order = append(order, info.Var)
		}
		if info.Multi {
			joined[info.Var] = append(joined[info.Var], r.Value)
		} else {
			joined[info.Var] = []string{r.Value}
		}
	}
	for _, v := range order {
		params.Set(v, strings.Join(joined[v], ","))
	}
	return params, nil
}
