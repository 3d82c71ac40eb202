package filter

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
)

func record(flags sam.Flags, mapq byte) *sam.Record {
	return &sam.Record{Name: "r", Flags: flags, MapQ: mapq, Pos: -1, MatePos: -1}
}

func u16(v uint16) *uint16 { return &v }
func u8(v uint8) *uint8    { return &v }

func TestNoFiltersKeepsEverything(t *testing.T) {
	keep := New(Config{})
	assert.Equal(t, 0, Config{}.Active())
	assert.True(t, keep(record(0, 0)))
	assert.True(t, keep(record(sam.Unmapped|sam.Duplicate, 0)))
}

func TestUnmappedFlag(t *testing.T) {
	unmapped := record(sam.Unmapped, 0)
	mapped := record(0, 60)

	exclude := New(Config{Exclude: u16(4)})
	assert.False(t, exclude(unmapped))
	assert.True(t, exclude(mapped))

	require := New(Config{Require: u16(4)})
	assert.True(t, require(unmapped))
	assert.False(t, require(mapped))

	both := New(Config{Require: u16(4), Exclude: u16(4)})
	assert.False(t, both(unmapped))
	assert.False(t, both(mapped))
}

func TestRequireAllBits(t *testing.T) {
	keep := New(Config{Require: u16(uint16(sam.Paired | sam.ProperPair))})
	assert.True(t, keep(record(sam.Paired|sam.ProperPair|sam.Reverse, 0)))
	assert.False(t, keep(record(sam.Paired, 0)))
}

func TestMinMapQ(t *testing.T) {
	keep := New(Config{MinMapQ: u8(30)})
	assert.True(t, keep(record(0, 30)))
	assert.True(t, keep(record(0, 60)))
	assert.False(t, keep(record(0, 29)))
}

func TestConjunction(t *testing.T) {
	c := Config{Exclude: u16(uint16(sam.Duplicate)), MinMapQ: u8(20)}
	assert.Equal(t, 2, c.Active())
	keep := New(c)
	assert.True(t, keep(record(0, 20)))
	assert.False(t, keep(record(sam.Duplicate, 60)))
	assert.False(t, keep(record(0, 10)))
}
