package domain

import "testing"

func TestQueriesOrdersAndDeduplicates(t *testing.T) {
	b := QueryBundle{
		Translation: "what changed in v2",
		Rewriting:   "  what changed in v2 ",
		Expansion:   []string{"v2 changes", "", "amendments to v2"},
		HyDE:        "v2 changes",
	}

	got := b.Queries()
	want := []string{"what changed in v2", "v2 changes", "amendments to v2"}
	if len(got) != len(want) {
		t.Fatalf("Queries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Queries()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBundleFromQuestionTrims(t *testing.T) {
	b := BundleFromQuestion("  how are fees calculated?  ")
	queries := b.Queries()
	if len(queries) != 1 || queries[0] != "how are fees calculated?" {
		t.Fatalf("Queries() = %v", queries)
	}
}

func TestIsEmpty(t *testing.T) {
	if !(QueryBundle{}).IsEmpty() {
		t.Fatalf("zero bundle must be empty")
	}
	if !(QueryBundle{Translation: "   "}).IsEmpty() {
		t.Fatalf("blank-only bundle must be empty")
	}
	if (QueryBundle{HyDE: "hypothetical answer"}).IsEmpty() {
		t.Fatalf("bundle with hyde must not be empty")
	}
}

func TestFormatHistory(t *testing.T) {
	history := []ChatLog{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}
	want := "USER: first question\nASSISTANT: first answer"
	if got := FormatHistory(history); got != want {
		t.Fatalf("FormatHistory() = %q, want %q", got, want)
	}
	if got := FormatHistory(nil); got != "" {
		t.Fatalf("FormatHistory(nil) = %q, want empty", got)
	}
}
