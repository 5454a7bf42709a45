package model

import (
	"encoding/json"
	"sort"
)

// URLSet is a set of URL strings that remembers insertion order.
//
// Design decision: We keep insertion order in addition to the membership map
// because:
//  1. Crawl output is easier to read when it follows discovery order
//  2. Tests can assert on order where the crawl is deterministic
//  3. Sorted output is still available through Sorted()
//
// The zero value is ready to use. A URLSet is not safe for concurrent use;
// the crawler only mutates it from its single collector loop.
type URLSet struct {
	items map[string]struct{}
	order []string
}

// NewURLSet creates a URLSet containing the given values.
func NewURLSet(values ...string) *URLSet {
	s := &URLSet{}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts value and reports whether it was not already present.
// Empty strings are ignored.
func (s *URLSet) Add(value string) bool {
	if value == "" {
		return false
	}
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	if _, ok := s.items[value]; ok {
		return false
	}
	s.items[value] = struct{}{}
	s.order = append(s.order, value)
	return true
}

// Merge adds every value of other and returns how many were new.
func (s *URLSet) Merge(other *URLSet) int {
	if other == nil {
		return 0
	}
	added := 0
	for _, v := range other.order {
		if s.Add(v) {
			added++
		}
	}
	return added
}

// Has reports whether value is in the set.
func (s *URLSet) Has(value string) bool {
	if s == nil || s.items == nil {
		return false
	}
	_, ok := s.items[value]
	return ok
}

// Len returns the number of values in the set.
func (s *URLSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Slice returns the values in insertion order.
// The returned slice is a copy.
func (s *URLSet) Slice() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted returns the values in lexical order.
func (s *URLSet) Sorted() []string {
	out := s.Slice()
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted JSON array so that stored
// harvests are stable regardless of completion order.
func (s *URLSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *URLSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	s.items = nil
	s.order = nil
	for _, v := range values {
		s.Add(v)
	}
	return nil
}
