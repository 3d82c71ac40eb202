package tags

import (
	"fmt"
	"math"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
)

// Aux encodes the tag as a biogo auxiliary field.
// An unset tag encodes to a nil Aux and no error.
func (t Tag) Aux() (sam.Aux, error) {
	var value interface{}
	switch v := t.Value.(type) {
	case nil:
		return nil, nil
	case Text:
		if v == "" {
			return nil, nil
		}
		value = string(v)
	case Integer:
		n, err := smallestInt(int64(v))
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", t.ID, err)
		}
		value = n
	case Real:
		value = float32(v)
	default:
		panic(fmt.Sprintf("tags: unexpected value type %T", t.Value))
	}

	aux, err := sam.NewAux(t.ID.SAM(), value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tag %s: %w", t, err)
	}
	return aux, nil
}

// smallestInt picks the narrowest SAM integer type holding n, unsigned
// for non-negative values
func smallestInt(n int64) (interface{}, error) {
	switch {
	case n >= 0 && n <= math.MaxUint8:
		return uint8(n), nil
	case n >= 0 && n <= math.MaxUint16:
		return uint16(n), nil
	case n >= 0 && n <= math.MaxUint32:
		return uint32(n), nil
	case n < 0 && n >= math.MinInt8:
		return int8(n), nil
	case n < 0 && n >= math.MinInt16:
		return int16(n), nil
	case n < 0 && n >= math.MinInt32:
		return int32(n), nil
	}
	return nil, fmt.Errorf("%w: integer %d does not fit a SAM aux field", errs.ErrParse, n)
}

// Upsert writes tag into fields, replacing any field with the same id.
// Unset tags leave fields untouched.
func Upsert(fields sam.AuxFields, tag Tag) (sam.AuxFields, error) {
	aux, err := tag.Aux()
	if err != nil {
		return fields, err
	}
	if aux == nil {
		return fields, nil
	}

	id := tag.ID.SAM()
	replaced := false
	out := fields[:0]
	for _, f := range fields {
		if f.Tag() != id {
			out = append(out, f)
			continue
		}
		if !replaced {
			out = append(out, aux)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, aux)
	}
	return out, nil
}

// Delete removes every field with the given id
func Delete(fields sam.AuxFields, id ID) sam.AuxFields {
	out := fields[:0]
	for _, f := range fields {
		if f.Tag() != id.SAM() {
			out = append(out, f)
		}
	}
	return out
}

// Lookup returns the first field with the given id, or nil
func Lookup(fields sam.AuxFields, id ID) sam.Aux {
	return fields.Get(id.SAM())
}

// Format renders an aux field's value as text. Text fields are returned
// as-is and integer and float fields in plain decimal; other field types
// (A, H, B) report false.
func Format(aux sam.Aux) (string, bool) {
	v, ok := ValueOf(aux)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// ValueOf decodes a text, integer or float aux field into a Value
func ValueOf(aux sam.Aux) (Value, bool) {
	if len(aux) < 3 {
		return nil, false
	}
	switch v := aux.Value().(type) {
	case string:
		if aux.Type() == 'Z' {
			return Text(v), true
		}
	case int8:
		return Integer(v), true
	case uint8:
		return Integer(v), true
	case int16:
		return Integer(v), true
	case uint16:
		return Integer(v), true
	case int32:
		return Integer(v), true
	case uint32:
		return Integer(v), true
	case float32:
		return Real(v), true
	}
	return nil, false
}
