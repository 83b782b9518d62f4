package basic

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TokenCache memoises tokenised statement text. Program lines are lexed
// once per distinct text instead of once per execution.
type TokenCache struct {
	cache  *lru.Cache[string, []Token]
	hits   int64
	misses int64
}

// NewTokenCache creates a cache holding up to size statements.
func NewTokenCache(size int) *TokenCache {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, []Token](size)
	if err != nil {
		// only fails for size <= 0
		panic(err)
	}
	return &TokenCache{cache: cache}
}

// Tokens returns the tokens for src, lexing on a miss. The returned slice is
// shared and must not be modified. Lex errors are not cached.
func (tc *TokenCache) Tokens(src string) ([]Token, error) {
	if toks, ok := tc.cache.Get(src); ok {
		atomic.AddInt64(&tc.hits, 1)
		return toks, nil
	}
	atomic.AddInt64(&tc.misses, 1)
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	tc.cache.Add(src, toks)
	return toks, nil
}

// Purge empties the cache and resets the counters.
func (tc *TokenCache) Purge() {
	tc.cache.Purge()
	atomic.StoreInt64(&tc.hits, 0)
	atomic.StoreInt64(&tc.misses, 0)
}

// CacheStats describes cache effectiveness.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Stats returns the current counters.
func (tc *TokenCache) Stats() CacheStats {
	return CacheStats{
		Entries: tc.cache.Len(),
		Hits:    atomic.LoadInt64(&tc.hits),
		Misses:  atomic.LoadInt64(&tc.misses),
	}
}
