package store

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paperdeck/paperdeck/internal/filter"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addDoc(t *testing.T, s *Store, title string, mutate func(*Document)) int64 {
	t.Helper()
	doc := &Document{
		Title:   title,
		Created: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		Added:   time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(doc)
	}
	id, err := s.AddDocument(doc)
	if err != nil {
		t.Fatalf("AddDocument(%q): %v", title, err)
	}
	return id
}

func TestAddAndGetDocument(t *testing.T) {
	s := testStore(t)
	tagID, err := s.EnsureTag("invoices")
	if err != nil {
		t.Fatalf("EnsureTag: %v", err)
	}

	id := addDoc(t, s, "Electric bill", func(d *Document) {
		d.Content = "monthly usage"
		d.TagIDs = []int64{tagID}
	})

	got, err := s.GetDocument(id)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got == nil {
		t.Fatal("GetDocument returned nil for existing document")
	}
	if got.Title != "Electric bill" || got.Content != "monthly usage" {
		t.Errorf("unexpected document: %+v", got)
	}
	if diff := cmp.Diff([]int64{tagID}, got.TagIDs); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestGetDocumentMissing(t *testing.T) {
	s := testStore(t)
	got, err := s.GetDocument(99)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing document, got %+v", got)
	}
}

func TestSearchByTagRequiresAll(t *testing.T) {
	s := testStore(t)
	tax, _ := s.EnsureTag("tax")
	urgent, _ := s.EnsureTag("urgent")

	addDoc(t, s, "both", func(d *Document) { d.TagIDs = []int64{tax, urgent} })
	addDoc(t, s, "tax only", func(d *Document) { d.TagIDs = []int64{tax} })
	addDoc(t, s, "untagged", nil)

	rules := []filter.Rule{
		{Type: filter.RuleTagsAll, Value: itoa(tax)},
		{Type: filter.RuleTagsAll, Value: itoa(urgent)},
	}
	docs, err := s.SearchDocuments(rules, "title", false)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "both" {
		t.Errorf("expected only the doc carrying both tags, got %+v", docs)
	}
}

func TestSearchFullText(t *testing.T) {
	s := testStore(t)
	addDoc(t, s, "Car insurance", func(d *Document) { d.Content = "policy renewal" })
	addDoc(t, s, "Rent contract", func(d *Document) { d.Content = "lease terms" })

	docs, err := s.SearchDocuments(
		[]filter.Rule{{Type: filter.RuleFullText, Value: "renewal"}}, "created", false)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Car insurance" {
		t.Errorf("full-text search mismatch: %+v", docs)
	}
}

func TestSearchSortOrder(t *testing.T) {
	s := testStore(t)
	addDoc(t, s, "bravo", nil)
	addDoc(t, s, "alpha", nil)
	addDoc(t, s, "charlie", nil)

	docs, err := s.SearchDocuments(nil, "title", false)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	var titles []string
	for _, d := range docs {
		titles = append(titles, d.Title)
	}
	if diff := cmp.Diff([]string{"alpha", "bravo", "charlie"}, titles); diff != "" {
		t.Errorf("ascending sort mismatch (-want +got):\n%s", diff)
	}

	docs, err = s.SearchDocuments(nil, "title", true)
	if err != nil {
		t.Fatalf("SearchDocuments reversed: %v", err)
	}
	if docs[0].Title != "charlie" {
		t.Errorf("reversed sort should start with charlie, got %q", docs[0].Title)
	}
}

func TestSearchRejectsUnknownSortColumn(t *testing.T) {
	s := testStore(t)
	addDoc(t, s, "doc", nil)

	// Unknown sort fields fall back to created rather than reaching SQL.
	docs, err := s.SearchDocuments(nil, "1; DROP TABLE documents", false)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 doc, got %d", len(docs))
	}
}

func TestMoreLikeSharesTags(t *testing.T) {
	s := testStore(t)
	tax, _ := s.EnsureTag("tax")
	other, _ := s.EnsureTag("other")

	ref := addDoc(t, s, "reference", func(d *Document) { d.TagIDs = []int64{tax} })
	addDoc(t, s, "similar", func(d *Document) { d.TagIDs = []int64{tax} })
	addDoc(t, s, "unrelated", func(d *Document) { d.TagIDs = []int64{other} })

	docs, err := s.SearchDocuments(
		[]filter.Rule{{Type: filter.RuleMoreLike, Value: itoa(ref)}}, "title", false)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "similar" {
		t.Errorf("more-like should match tag-sharing docs only, got %+v", docs)
	}
}

func TestEnsureNamedIsIdempotent(t *testing.T) {
	s := testStore(t)
	a, err := s.EnsureCorrespondent("ACME")
	if err != nil {
		t.Fatalf("EnsureCorrespondent: %v", err)
	}
	b, err := s.EnsureCorrespondent("ACME")
	if err != nil {
		t.Fatalf("EnsureCorrespondent second call: %v", err)
	}
	if a != b {
		t.Errorf("expected same id, got %d and %d", a, b)
	}
}

func TestSavedViewRoundTrip(t *testing.T) {
	s := testStore(t)
	v := &SavedView{
		Name: "Inbox",
		FilterRules: []filter.Rule{
			{Type: filter.RuleTagsAll, Value: "3"},
			{Type: filter.RuleCorrespondent, Value: "7"},
		},
		SortField:     "added",
		SortReverse:   true,
		ShowInSidebar: true,
	}
	id, err := s.CreateSavedView(v)
	if err != nil {
		t.Fatalf("CreateSavedView: %v", err)
	}

	got, err := s.GetSavedView(id)
	if err != nil {
		t.Fatalf("GetSavedView: %v", err)
	}
	v.ID = id
	if diff := cmp.Diff(v, got); diff != "" {
		t.Errorf("saved view mismatch (-want +got):\n%s", diff)
	}
}

func TestSavedViewRulesKeepOrder(t *testing.T) {
	s := testStore(t)
	rules := []filter.Rule{
		{Type: filter.RuleTagsAll, Value: "9"},
		{Type: filter.RuleTagsAll, Value: "2"},
		{Type: filter.RuleTitle, Value: "z"},
	}
	id, err := s.CreateSavedView(&SavedView{Name: "ordered", FilterRules: rules, SortField: "created"})
	if err != nil {
		t.Fatalf("CreateSavedView: %v", err)
	}
	got, err := s.GetSavedView(id)
	if err != nil {
		t.Fatalf("GetSavedView: %v", err)
	}
	if diff := cmp.Diff(rules, got.FilterRules); diff != "" {
		t.Errorf("rule order not preserved (-want +got):\n%s", diff)
	}
}

func TestCreateSavedViewDuplicateName(t *testing.T) {
	s := testStore(t)
	if _, err := s.CreateSavedView(&SavedView{Name: "dup", SortField: "created"}); err != nil {
		t.Fatalf("CreateSavedView: %v", err)
	}
	_, err := s.CreateSavedView(&SavedView{Name: "dup", SortField: "created"})
	if !errors.Is(err, ErrDuplicateViewName) {
		t.Errorf("expected ErrDuplicateViewName, got %v", err)
	}
}

func TestUpdateSavedViewReplacesRules(t *testing.T) {
	s := testStore(t)
	id, err := s.CreateSavedView(&SavedView{
		Name:        "edit me",
		FilterRules: []filter.Rule{{Type: filter.RuleTitle, Value: "old"}},
		SortField:   "created",
	})
	if err != nil {
		t.Fatalf("CreateSavedView: %v", err)
	}

	updated := &SavedView{
		ID:          id,
		Name:        "edited",
		FilterRules: []filter.Rule{{Type: filter.RuleContent, Value: "new"}},
		SortField:   "title",
		SortReverse: true,
	}
	if err := s.UpdateSavedView(updated); err != nil {
		t.Fatalf("UpdateSavedView: %v", err)
	}

	got, err := s.GetSavedView(id)
	if err != nil {
		t.Fatalf("GetSavedView: %v", err)
	}
	if diff := cmp.Diff(updated, got); diff != "" {
		t.Errorf("updated view mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteSavedViewCascades(t *testing.T) {
	s := testStore(t)
	id, err := s.CreateSavedView(&SavedView{
		Name:        "gone",
		FilterRules: []filter.Rule{{Type: filter.RuleTitle, Value: "x"}},
		SortField:   "created",
	})
	if err != nil {
		t.Fatalf("CreateSavedView: %v", err)
	}
	if err := s.DeleteSavedView(id); err != nil {
		t.Fatalf("DeleteSavedView: %v", err)
	}
	got, err := s.GetSavedView(id)
	if err != nil {
		t.Fatalf("GetSavedView: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM saved_view_rules WHERE view_id = ?`, id).Scan(&n); err != nil {
		t.Fatalf("count rules: %v", err)
	}
	if n != 0 {
		t.Errorf("expected rules cascade-deleted, found %d", n)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
