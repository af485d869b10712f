package tui

import (
	"strings"
	"testing"
)

func (f *fixture) render() string {
	f.t.Helper()
	return stripANSI(f.model.View())
}

func TestViewRendersDocumentTable(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	out := f.render()
	for _, want := range []string{
		"paperdeck test",
		"All documents",
		"Title", "Correspondent", "Type", "Created",
		"Holiday photos", "Water bill", "Electric bill",
		"ACME", "Invoice",
		"2025-01-10",
		"1-3 of 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestViewShowsSelectionMarkAndCount(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	f.press(" ")
	out := f.render()
	if !strings.Contains(out, "✓") {
		t.Errorf("selected row not marked:\n%s", out)
	}
	if !strings.Contains(out, "1 selected") {
		t.Errorf("footer missing selection count:\n%s", out)
	}
}

func TestViewShowsDirtySavedViewTitle(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	f.press("v", "j", "enter")
	out := f.render()
	if !strings.Contains(out, "Invoices") {
		t.Fatalf("title bar missing active view name:\n%s", out)
	}
	if strings.Contains(out, "Invoices *") {
		t.Fatalf("clean view should have no dirty marker:\n%s", out)
	}

	rules := f.list.FilterRules()
	f.list.SetFilterRules(append(rules, tagRules(f.invoiceTag)[0]))
	out = f.render()
	if !strings.Contains(out, "Invoices *") {
		t.Errorf("modified view missing dirty marker:\n%s", out)
	}
}

func TestViewEmptyListMessage(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	f.press("/")
	f.typeText("zzzzz")
	f.press("enter")

	out := f.render()
	if !strings.Contains(out, "No documents match the current filter") {
		t.Errorf("empty result message missing:\n%s", out)
	}
	if !strings.Contains(out, "0 documents") {
		t.Errorf("footer missing zero count:\n%s", out)
	}
}

func TestViewPickerListsSavedViews(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	f.press("v")
	out := f.render()
	for _, want := range []string{"Saved views", "All documents", "Invoices"} {
		if !strings.Contains(out, want) {
			t.Errorf("picker missing %q:\n%s", want, out)
		}
	}
}

func TestViewDetailShowsContent(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	f.press("G", "enter") // oldest row is Electric bill
	out := f.render()
	if !strings.Contains(out, "Electric bill") {
		t.Errorf("detail missing title:\n%s", out)
	}
	if !strings.Contains(out, "monthly electricity usage statement") {
		t.Errorf("detail missing content:\n%s", out)
	}
	if !strings.Contains(out, "esc back") {
		t.Errorf("detail missing footer hint:\n%s", out)
	}
}

func TestViewHelpOverlay(t *testing.T) {
	forceColorProfile(t)
	f := newFixture(t)

	f.press("?")
	out := f.render()
	if !strings.Contains(out, "space") {
		t.Errorf("help missing key listing:\n%s", out)
	}

	f.press("q") // any key closes help
	if f.model.modal != modalNone {
		t.Error("help overlay should close on any key")
	}
	if f.model.quitting {
		t.Error("key that closes help must not also quit")
	}
}
