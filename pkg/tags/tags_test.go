package tags

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		token string
		want  Tag
	}{
		{"ZA", Tag{ID{'Z', 'A'}, Text("")}},
		{"ZA:BAR", Tag{ID{'Z', 'A'}, Text("BAR")}},
		{"NM:3", Tag{ID{'N', 'M'}, Integer(3)}},
		{"XS:-12", Tag{ID{'X', 'S'}, Integer(-12)}},
		{"XF:0.5", Tag{ID{'X', 'F'}, Real(0.5)}},
		{"XV:1.2.3", Tag{ID{'X', 'V'}, Text("1.2.3")}},
		{"XE:1e5", Tag{ID{'X', 'E'}, Text("1e5")}},
		{"za:a:b", Tag{ID{'z', 'a'}, Text("a:b")}},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			got, err := Parse(tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, token := range []string{"", "Z", "ZA:", "ZAB", "ZAB:1", "ZA=1"} {
		t.Run(token, func(t *testing.T) {
			_, err := Parse(token)
			assert.ErrorIs(t, err, errs.ErrInvalidTagFormat)
		})
	}
}

func TestInferValue(t *testing.T) {
	assert.Equal(t, Integer(42), InferValue("42"))
	assert.Equal(t, Integer(-7), InferValue("-7"))
	assert.Equal(t, Real(3.25), InferValue("3.25"))
	assert.Equal(t, Text("FOO"), InferValue("FOO"))
	assert.Equal(t, Text(""), InferValue(""))
	assert.Equal(t, Text("inf"), InferValue("inf"))
	assert.Equal(t, Text("99999999999999999999"), InferValue("99999999999999999999"))
	assert.True(t, IsUnset(InferValue("")))
	assert.False(t, IsUnset(InferValue("0")))
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "ZA", Tag{ID{'Z', 'A'}, Text("")}.String())
	assert.Equal(t, "ZA:BAR", Tag{ID{'Z', 'A'}, Text("BAR")}.String())
	assert.Equal(t, "NM:3", Tag{ID{'N', 'M'}, Integer(3)}.String())
}

func TestUpsert(t *testing.T) {
	existing, err := sam.NewAux(sam.NewTag("ZA"), "OLD")
	require.NoError(t, err)
	other, err := sam.NewAux(sam.NewTag("RG"), "grp1")
	require.NoError(t, err)
	fields := sam.AuxFields{existing, other}

	fields, err = Upsert(fields, Tag{ID{'Z', 'A'}, Text("NEW")})
	require.NoError(t, err)
	require.Len(t, fields, 2)
	got, ok := Format(Lookup(fields, ID{'Z', 'A'}))
	require.True(t, ok)
	assert.Equal(t, "NEW", got)

	fields, err = Upsert(fields, Tag{ID{'N', 'M'}, Integer(300)})
	require.NoError(t, err)
	require.Len(t, fields, 3)
	v, ok := ValueOf(Lookup(fields, ID{'N', 'M'}))
	require.True(t, ok)
	assert.Equal(t, Integer(300), v)

	fields, err = Upsert(fields, Tag{ID{'X', 'F'}, Real(0.25)})
	require.NoError(t, err)
	got, ok = Format(Lookup(fields, ID{'X', 'F'}))
	require.True(t, ok)
	assert.Equal(t, "0.25", got)
}

func TestUpsertUnsetIsNoop(t *testing.T) {
	fields, err := Upsert(nil, Tag{ID{'Z', 'A'}, Text("")})
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestUpsertIntegerRange(t *testing.T) {
	for _, n := range []int64{0, 255, 256, 65536, -1, -129, -40000, 4294967295} {
		fields, err := Upsert(nil, Tag{ID{'X', 'I'}, Integer(n)})
		require.NoError(t, err)
		v, ok := ValueOf(Lookup(fields, ID{'X', 'I'}))
		require.True(t, ok)
		assert.Equal(t, Integer(n), v)
	}
	_, err := Upsert(nil, Tag{ID{'X', 'I'}, Integer(1 << 40)})
	assert.ErrorIs(t, err, errs.ErrParse)
}

func TestDelete(t *testing.T) {
	a, err := sam.NewAux(sam.NewTag("ZA"), "x")
	require.NoError(t, err)
	b, err := sam.NewAux(sam.NewTag("ZB"), "y")
	require.NoError(t, err)
	fields := Delete(sam.AuxFields{a, b}, ID{'Z', 'A'})
	require.Len(t, fields, 1)
	assert.Nil(t, Lookup(fields, ID{'Z', 'A'}))
	assert.NotNil(t, Lookup(fields, ID{'Z', 'B'}))
}

func TestFormatFloatIsDecimal(t *testing.T) {
	testCases := []struct {
		value float32
		want  string
	}{
		{1000000, "1000000"},
		{0.00001, "0.00001"},
		{0.25, "0.25"},
		{-2, "-2"},
	}
	for _, tc := range testCases {
		aux, err := sam.NewAux(sam.NewTag("ZF"), tc.value)
		require.NoError(t, err)
		got, ok := Format(aux)
		require.True(t, ok)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want, Real(tc.value).String())
	}
	assert.Equal(t, "XF:1000000", Tag{ID{'X', 'F'}, Real(1e6)}.String())
}

func TestValueOf(t *testing.T) {
	text, err := sam.NewAux(sam.NewTag("ZA"), "BAR")
	require.NoError(t, err)
	v, ok := ValueOf(text)
	require.True(t, ok)
	assert.Equal(t, Text("BAR"), v)

	neg, err := sam.NewAux(sam.NewTag("XS"), int16(-300))
	require.NoError(t, err)
	v, ok = ValueOf(neg)
	require.True(t, ok)
	assert.Equal(t, Integer(-300), v)

	_, ok = ValueOf(nil)
	assert.False(t, ok)
}

func TestFormatUnsupportedType(t *testing.T) {
	aux, err := sam.NewAux(sam.NewTag("XA"), sam.ASCII('x'))
	require.NoError(t, err)
	_, ok := Format(aux)
	assert.False(t, ok)
}
