package citations

import "testing"

func TestRenumberAssignsAscendingFirstAppearanceOrder(t *testing.T) {
	r := New()
	text := "Claim one [2]. Claim two [1]. Claim one again [2]."
	local := map[int]string{1: "https://a.example", 2: "https://b.example"}

	got, mapping := r.Renumber(text, local)

	want := "Claim one [1]. Claim two [2]. Claim one again [1]."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if mapping[2] != 1 || mapping[1] != 2 {
		t.Fatalf("unexpected mapping: %v", mapping)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 assigned globals, got %d", r.Len())
	}
	urls := r.URLs()
	if urls[1] != "https://b.example" || urls[2] != "https://a.example" {
		t.Fatalf("unexpected urls: %v", urls)
	}
}

func TestRenumberContinuesAcrossCalls(t *testing.T) {
	r := New()
	r.Renumber("First [1].", map[int]string{1: "https://a.example"})
	_, mapping := r.Renumber("Second [1].", map[int]string{1: "https://b.example"})
	if mapping[1] != 2 {
		t.Fatalf("expected second call to continue numbering at 2, got %d", mapping[1])
	}
}

func TestRenumberLeavesGapWhenURLMissing(t *testing.T) {
	r := New()
	r.Renumber("Dangling [1].", map[int]string{})
	urls := r.URLs()
	if _, ok := urls[1]; ok {
		t.Fatalf("expected no URL recorded for a citation without a source, got %v", urls)
	}
	if r.Len() != 1 {
		t.Fatalf("expected the index to still be consumed, got Len()=%d", r.Len())
	}
}

func TestApplyMappingRewritesKeyLearnings(t *testing.T) {
	mapping := map[int]int{1: 5, 2: 6}
	got := ApplyMapping("See [1] and [2].", mapping)
	want := "See [5] and [6]."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

