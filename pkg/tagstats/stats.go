// Package tagstats counts auxiliary tag occurrences across alignment
// records and renders the counts as a table.
package tagstats

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/storage"
	"github.com/scttfrdmn/tagreads-go/pkg/tags"
)

// SearchTag is a tag id with an optional value pattern. Without a value it
// matches any field with the id.
type SearchTag struct {
	ID       tags.ID
	Value    string
	HasValue bool

	// Pattern is compiled from Value and matched as a substring search
	Pattern *regexp.Regexp
}

// Key identifies a SearchTag; the compiled pattern does not take part
type Key struct {
	ID       tags.ID
	Value    string
	HasValue bool
}

// Key returns the identity of t
func (t SearchTag) Key() Key {
	return Key{ID: t.ID, Value: t.Value, HasValue: t.HasValue}
}

// String renders t as ID or ID:VALUE
func (t SearchTag) String() string {
	if t.HasValue {
		return t.ID.String() + ":" + t.Value
	}
	return t.ID.String()
}

// ParseSearchTag parses an ID or ID:PATTERN token
func ParseSearchTag(token string) (SearchTag, error) {
	tag, err := tags.Parse(token)
	if err != nil {
		return SearchTag{}, err
	}
	st := SearchTag{ID: tag.ID}
	if len(token) > 3 {
		st.Value = token[3:]
		st.HasValue = true
		st.Pattern, err = regexp.Compile(st.Value)
		if err != nil {
			return SearchTag{}, fmt.Errorf("%w: %q: invalid pattern: %w", errs.ErrInvalidTagFormat, token, err)
		}
	}
	return st, nil
}

// ParseSearchTags parses every token in order
func ParseSearchTags(tokens []string) ([]SearchTag, error) {
	out := make([]SearchTag, 0, len(tokens))
	for _, token := range tokens {
		st, err := ParseSearchTag(token)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// LoadSearchTags reads one tag token per line; blank lines and lines
// starting with '#' are skipped
func LoadSearchTags(ctx context.Context, path string) ([]SearchTag, error) {
	r, err := storage.OpenText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open tag file %s: %w", errs.ErrIO, path, err)
	}
	defer r.Close()

	var out []SearchTag
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		st, err := ParseSearchTag(text)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read tag file %s: %w", errs.ErrIO, path, err)
	}
	return out, nil
}

// valueKey identifies an observed (id, value) pair
type valueKey struct {
	id    tags.ID
	value string
}

// Row is one counted entry of the report
type Row struct {
	Tag   string
	Value string
	Count int
}

// Stats holds the counters of one run
type Stats struct {
	searchTags []SearchTag
	counts     []int

	split       bool
	values      []Row
	valueByPair map[valueKey]int

	TotalReads int
}

// New seeds a zero count for every distinct search tag, keeping the first
// occurrence of duplicates. Per-value counts are kept only when split is
// set.
func New(searchTags []SearchTag, split bool) *Stats {
	s := &Stats{split: split}
	seen := make(map[Key]bool)
	for _, st := range searchTags {
		if seen[st.Key()] {
			continue
		}
		seen[st.Key()] = true
		s.searchTags = append(s.searchTags, st)
	}
	s.counts = make([]int, len(s.searchTags))
	if split {
		s.valueByPair = make(map[valueKey]int)
	}
	return s
}

// SearchTags returns the distinct search tags in configuration order
func (s *Stats) SearchTags() []SearchTag {
	return s.searchTags
}

// Split reports whether per-value counts are kept
func (s *Stats) Split() bool {
	return s.split
}

// Count returns the presence count of the search tag with key k
func (s *Stats) Count(k Key) (int, bool) {
	for i, st := range s.searchTags {
		if st.Key() == k {
			return s.counts[i], true
		}
	}
	return 0, false
}

// ValueCount returns the per-value count of (id, value)
func (s *Stats) ValueCount(id tags.ID, value string) (int, bool) {
	i, ok := s.valueByPair[valueKey{id, value}]
	if !ok {
		return 0, false
	}
	return s.values[i].Count, true
}

// Observe updates the counters with one record. A search tag with a
// pattern counts once when the first field with its id matches; a tag
// without one counts every field with its id.
func (s *Stats) Observe(rec *sam.Record) {
	for i, st := range s.searchTags {
		if st.Pattern != nil {
			aux := tags.Lookup(rec.AuxFields, st.ID)
			if aux == nil {
				continue
			}
			text, ok := tags.Format(aux)
			if !ok || !st.Pattern.MatchString(text) {
				continue
			}
			s.counts[i]++
			s.addValue(st.ID, text)
			continue
		}

		want := st.ID.SAM()
		for _, aux := range rec.AuxFields {
			if aux.Tag() != want {
				continue
			}
			s.counts[i]++
			if text, ok := tags.Format(aux); ok {
				s.addValue(st.ID, text)
			}
		}
	}
	s.TotalReads++
}

func (s *Stats) addValue(id tags.ID, text string) {
	if !s.split {
		return
	}
	k := valueKey{id, text}
	i, ok := s.valueByPair[k]
	if !ok {
		i = len(s.values)
		s.valueByPair[k] = i
		s.values = append(s.values, Row{Tag: id.String(), Value: text})
	}
	s.values[i].Count++
}

// Rows returns the presence rows in configuration order followed by the
// value rows in first-seen order
func (s *Stats) Rows() []Row {
	rows := make([]Row, 0, len(s.searchTags)+len(s.values))
	for i, st := range s.searchTags {
		value := "*"
		if st.HasValue {
			value = st.Value
		}
		rows = append(rows, Row{Tag: st.ID.String(), Value: value, Count: s.counts[i]})
	}
	return append(rows, s.values...)
}
