// Package ledger remembers which entry pages have been fully processed so
// later runs skip them.
package ledger

import "sync"

// Set is an insertion-ordered set of URLs, safe for concurrent use.
type Set struct {
	mu    sync.Mutex
	index map[string]struct{}
	urls  []string
}

func NewSet(urls ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(urls))}
	for _, url := range urls {
		s.Record(url)
	}
	return s
}

func (s *Set) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[url]
	return ok
}

// Record adds url and reports whether it was new.
func (s *Set) Record(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[url]; ok {
		return false
	}
	s.index[url] = struct{}{}
	s.urls = append(s.urls, url)
	return true
}

// Remove drops url, keeping the order of the rest.
func (s *Set) Remove(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[url]; !ok {
		return
	}
	delete(s.index, url)
	for i, u := range s.urls {
		if u == url {
			s.urls = append(s.urls[:i], s.urls[i+1:]...)
			break
		}
	}
}

// URLs returns a copy of the members in insertion order.
func (s *Set) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}
