package protocol

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
)

// DefaultWarnWindow is how many distinct malformed lines are remembered.
const DefaultWarnWindow = 256

// warnFilter remembers recently reported malformed lines so a controller
// repeating the same unsupported line does not flood the log.
type warnFilter struct {
	seen *lru.Cache[uint64, struct{}]
}

func newWarnFilter(size int) *warnFilter {
	if size <= 0 {
		return &warnFilter{}
	}
	cache, err := lru.New[uint64, struct{}](size)
	if err != nil {
		return &warnFilter{}
	}
	return &warnFilter{seen: cache}
}

// first reports whether line is not in the window, and records it.
func (f *warnFilter) first(line string) bool {
	if f.seen == nil {
		return true
	}
	found, _ := f.seen.ContainsOrAdd(xxh3.HashString(line), struct{}{})
	return !found
}
