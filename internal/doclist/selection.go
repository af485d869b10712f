package doclist

// Selection tracks the set of selected document IDs and the anchor used for
// range extension. Range selection works against the currently rendered
// ordering, which the owning List supplies.
type Selection struct {
	selected map[int64]bool
	anchor   *int64 // most recently toggled ID
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{selected: make(map[int64]bool)}
}

// Toggle flips membership of a single ID and anchors future range
// extension at it.
func (s *Selection) Toggle(id int64) {
	if s.selected[id] {
		delete(s.selected, id)
	} else {
		s.selected[id] = true
	}
	anchor := id
	s.anchor = &anchor
}

// SelectRangeTo extends the selection from the anchor through target,
// inclusive, in the given rendered order. With no anchor (or an anchor not
// present in the rendered order) it degenerates to selecting target only.
func (s *Selection) SelectRangeTo(target int64, rendered []int64) {
	anchorIdx, targetIdx := -1, -1
	for i, id := range rendered {
		if s.anchor != nil && id == *s.anchor {
			anchorIdx = i
		}
		if id == target {
			targetIdx = i
		}
	}
	if targetIdx == -1 {
		return
	}
	if anchorIdx == -1 {
		s.selected[target] = true
		return
	}
	lo, hi := anchorIdx, targetIdx
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, id := range rendered[lo : hi+1] {
		s.selected[id] = true
	}
}

// SelectNone clears the selection and the anchor.
func (s *Selection) SelectNone() {
	s.selected = make(map[int64]bool)
	s.anchor = nil
}

// IsSelected reports membership of a single ID.
func (s *Selection) IsSelected(id int64) bool {
	return s.selected[id]
}

// IsBulkEditing is true iff the selection is non-empty. Presentation logic
// reads this to switch into bulk-action mode; it has no state of its own.
func (s *Selection) IsBulkEditing() bool {
	return len(s.selected) > 0
}

// IDs returns the selected IDs in unspecified order.
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	return out
}

// Count returns the number of selected IDs.
func (s *Selection) Count() int {
	return len(s.selected)
}
