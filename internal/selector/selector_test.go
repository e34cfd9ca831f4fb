package selector

import (
	"reflect"
	"testing"
)

func TestSelectIsDeterministic(t *testing.T) {
	source := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	first := Select("2025-03-14::science", source, 5)
	second := Select("2025-03-14::science", source, 5)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different sequences: %v vs %v", first, second)
	}
	if len(first) != 5 {
		t.Fatalf("expected 5 items, got %d", len(first))
	}
}

func TestSelectDifferentSeedsDiverge(t *testing.T) {
	source := make([]int, 50)
	for i := range source {
		source[i] = i
	}

	a := Select(Seed("room-1", "round-1"), source, 10)
	b := Select(Seed("room-1", "round-2"), source, 10)
	if reflect.DeepEqual(a, b) {
		t.Fatalf("distinct composite seeds produced identical selections: %v", a)
	}
}

func TestSelectClampsCount(t *testing.T) {
	source := []string{"x", "y", "z"}

	got := Select("seed", source, 10)
	if len(got) != 3 {
		t.Fatalf("expected full source when count exceeds length, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, v := range got {
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected a permutation without duplicates, got %v", got)
	}
}

func TestSelectEdgeCases(t *testing.T) {
	if got := Select("seed", []string{}, 3); len(got) != 0 {
		t.Fatalf("empty source should yield empty result, got %v", got)
	}
	if got := Select("seed", []string{"a", "b"}, 0); len(got) != 0 {
		t.Fatalf("count 0 should yield empty result, got %v", got)
	}
	if got := Select("seed", []string{"a", "b"}, -1); len(got) != 0 {
		t.Fatalf("negative count should yield empty result, got %v", got)
	}
}

func TestSelectDoesNotMutateSource(t *testing.T) {
	source := []string{"a", "b", "c", "d"}
	copySrc := append([]string(nil), source...)

	_ = Select("seed", source, 4)
	if !reflect.DeepEqual(source, copySrc) {
		t.Fatalf("source mutated: %v", source)
	}
}

func TestPickIsStable(t *testing.T) {
	source := []int{10, 20, 30, 40}

	a, ok := Pick("bot-2::q7", source)
	if !ok {
		t.Fatalf("expected a pick")
	}
	b, _ := Pick("bot-2::q7", source)
	if a != b {
		t.Fatalf("same seed picked %d then %d", a, b)
	}

	if _, ok := Pick("seed", []int{}); ok {
		t.Fatalf("empty source should not pick")
	}
}
