package sheetcsv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSimpleRows(t *testing.T) {
	got := Parse("a,b,c\nd,e,f\n")
	want := [][]string{{"a", "b", "c"}, {"d", "e", "f"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQuotedComma(t *testing.T) {
	got := Parse(`"Smith Clinic, Downtown",Pharmacy,3`)
	want := [][]string{{"Smith Clinic, Downtown", "Pharmacy", "3"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEscapedQuotes(t *testing.T) {
	got := Parse(`"say ""hello""",x`)
	want := [][]string{{`say "hello"`, "x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	got := Parse("a,b\n\n   \nc,d\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
}

func TestParseCRLF(t *testing.T) {
	got := Parse("a,b\r\nc,d\r\n")
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUnterminatedQuoteDegrades(t *testing.T) {
	// The broken quote swallows the rest of the line literally rather
	// than failing the document.
	got := Parse("ok,fine\nbad,\"no closing, quote\nnext,row\n")
	want := [][]string{
		{"ok", "fine"},
		{"bad", "no closing, quote"},
		{"next", "row"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyFields(t *testing.T) {
	got := Parse("a,,c\n,,\n")
	want := [][]string{{"a", "", "c"}, {"", "", ""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRoundTripFixture(t *testing.T) {
	// Field values containing commas and quotes survive a parse of their
	// encoded form exactly.
	raw := `name,category,notes
"Mercy Hospital, East Wing",Health System,"waiting ""room"" closed"
Corner Pharmacy,Pharmacy,open`
	got := Parse(raw)
	want := [][]string{
		{"name", "category", "notes"},
		{"Mercy Hospital, East Wing", "Health System", `waiting "room" closed`},
		{"Corner Pharmacy", "Pharmacy", "open"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}
