package domain

import "testing"

func TestChunkDocName(t *testing.T) {
	cases := []struct {
		name  string
		chunk Chunk
		want  string
	}{
		{
			"doc_name meta wins",
			Chunk{DocID: "s3://bucket/specs/spec.pdf", DocMeta: map[string]any{"doc_name": "Payment Spec"}},
			"Payment Spec",
		},
		{
			"last path segment of doc_id",
			Chunk{DocID: "s3://bucket/specs/spec.pdf"},
			"spec.pdf",
		},
		{
			"plain doc_id",
			Chunk{DocID: "spec-2024"},
			"spec-2024",
		},
		{
			"non-string doc_name ignored",
			Chunk{DocID: "a/b", DocMeta: map[string]any{"doc_name": 7}},
			"b",
		},
	}
	for _, tc := range cases {
		if got := tc.chunk.DocName(); got != tc.want {
			t.Fatalf("%s: DocName() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestChunkTypeAndLinkage(t *testing.T) {
	c := Chunk{DocMeta: map[string]any{"doc_type": DocTypeAdditional, "base_doc_id": "base-1"}}
	if c.DocType() != DocTypeAdditional {
		t.Fatalf("DocType() = %q", c.DocType())
	}
	if c.BaseDocID() != "base-1" {
		t.Fatalf("BaseDocID() = %q", c.BaseDocID())
	}

	base := Chunk{DocMeta: map[string]any{"doc_type": DocTypeBase}}
	if base.BaseDocID() != "" {
		t.Fatalf("base chunk BaseDocID() = %q, want empty", base.BaseDocID())
	}
	if (Chunk{}).DocType() != "" {
		t.Fatalf("nil meta DocType must be empty")
	}
}
