package room

import "testing"

func TestKeySymmetry(t *testing.T) {
	k1 := Key("user-a", "user-b")
	k2 := Key("user-b", "user-a")
	if k1 != k2 {
		t.Fatalf("key not symmetric: %q vs %q", k1, k2)
	}
}

func TestKeyOrdering(t *testing.T) {
	k := Key("zeta", "alpha")
	if k != "alpha:zeta" {
		t.Fatalf("expected lexicographic order, got %q", k)
	}
}

func TestKeyDistinctPairs(t *testing.T) {
	if Key("a", "b") == Key("a", "c") {
		t.Fatal("distinct pairs produced the same key")
	}
}
