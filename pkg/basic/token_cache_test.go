package basic

import "testing"

func TestTokenCache(t *testing.T) {
	tc := NewTokenCache(2)

	for i := 0; i < 3; i++ {
		if _, err := tc.Tokens("PRINT 1"); err != nil {
			t.Fatal(err)
		}
	}
	stats := tc.Stats()
	if stats.Misses != 1 || stats.Hits != 2 || stats.Entries != 1 {
		t.Errorf("stats = %+v, want 1 miss, 2 hits, 1 entry", stats)
	}

	tc.Tokens("A=1")
	tc.Tokens("B=2")
	if got := tc.Stats().Entries; got != 2 {
		t.Errorf("entries = %d, want 2 (bounded)", got)
	}

	tc.Purge()
	if stats := tc.Stats(); stats.Entries != 0 || stats.Hits != 0 {
		t.Errorf("stats after purge = %+v", stats)
	}
}

func TestTokenCacheSkipsLexErrors(t *testing.T) {
	tc := NewTokenCache(4)
	for i := 0; i < 2; i++ {
		if _, err := tc.Tokens(`PRINT "x`); KindOf(err) != KindLex {
			t.Fatalf("got %v, want lex error", err)
		}
	}
	if stats := tc.Stats(); stats.Entries != 0 || stats.Misses != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
