// Package filter builds read predicates from flag and mapping quality
// options.
package filter

import (
	"github.com/biogo/hts/sam"
)

// Predicate reports whether a record should be kept
type Predicate func(*sam.Record) bool

// Config holds the optional filter settings; a nil field is inactive
type Config struct {
	// Require keeps records with all of these flag bits set (-f)
	Require *uint16

	// Exclude drops records with any of these flag bits set (-F)
	Exclude *uint16

	// MinMapQ keeps records with at least this mapping quality (-q)
	MinMapQ *uint8
}

// Active returns the number of configured sub-predicates
func (c Config) Active() int {
	n := 0
	for _, set := range []bool{c.Require != nil, c.Exclude != nil, c.MinMapQ != nil} {
		if set {
			n++
		}
	}
	return n
}

// New returns the conjunction of the active sub-predicates. With none
// active every record is kept.
func New(c Config) Predicate {
	var preds []Predicate
	if c.Require != nil {
		preds = append(preds, RequireFlags(*c.Require))
	}
	if c.Exclude != nil {
		preds = append(preds, ExcludeFlags(*c.Exclude))
	}
	if c.MinMapQ != nil {
		preds = append(preds, MinMapQ(*c.MinMapQ))
	}

	switch len(preds) {
	case 0:
		return All
	case 1:
		return preds[0]
	}
	return func(rec *sam.Record) bool {
		for _, p := range preds {
			if !p(rec) {
				return false
			}
		}
		return true
	}
}

// All keeps every record
func All(*sam.Record) bool { return true }

// RequireFlags keeps records with every bit of mask set
func RequireFlags(mask uint16) Predicate {
	f := sam.Flags(mask)
	return func(rec *sam.Record) bool {
		return rec.Flags&f == f
	}
}

// ExcludeFlags drops records with any bit of mask set
func ExcludeFlags(mask uint16) Predicate {
	f := sam.Flags(mask)
	return func(rec *sam.Record) bool {
		return rec.Flags&f == 0
	}
}

// MinMapQ keeps records with MapQ >= threshold
func MinMapQ(threshold uint8) Predicate {
	return func(rec *sam.Record) bool {
		return rec.MapQ >= threshold
	}
}
