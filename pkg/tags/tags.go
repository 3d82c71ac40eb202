// Package tags models the auxiliary tags written to and counted on
// alignment records.
//
// A tag is a two character identifier plus a typed value. Values are a
// closed set of three kinds (Text, Integer, Real); every consumer switches
// over all three. The empty Text value means "unset" and is never written
// to a record.
package tags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
)

// ID is a two character, case sensitive auxiliary field identifier
type ID [2]byte

// String returns the two characters of the id
func (id ID) String() string {
	return string(id[:])
}

// SAM returns the id as a biogo aux tag
func (id ID) SAM() sam.Tag {
	return sam.Tag(id)
}

// Value is one of Text, Integer or Real
type Value interface {
	fmt.Stringer
	isValue()
}

// Text is a string value; the empty Text is the unset value
type Text string

// Integer is a signed integer value
type Integer int64

// Real is a single precision floating point value
type Real float32

func (Text) isValue()    {}
func (Integer) isValue() {}
func (Real) isValue()    {}

func (v Text) String() string    { return string(v) }
func (v Integer) String() string { return strconv.FormatInt(int64(v), 10) }
func (v Real) String() string    { return strconv.FormatFloat(float64(v), 'f', -1, 32) }

// IsUnset reports whether v is the empty Text value
func IsUnset(v Value) bool {
	t, ok := v.(Text)
	return v == nil || (ok && t == "")
}

// Tag is an auxiliary field id with its value
type Tag struct {
	ID    ID
	Value Value
}

// String renders the tag as ID or ID:VALUE
func (t Tag) String() string {
	if IsUnset(t.Value) {
		return t.ID.String()
	}
	return t.ID.String() + ":" + t.Value.String()
}

// Parse parses an "ID:VALUE" or bare "ID" token.
// Tokens shorter than 2 characters, exactly 3 characters long, or longer
// than 3 characters without ':' at position 2 are rejected.
func Parse(token string) (Tag, error) {
	if len(token) < 2 || len(token) == 3 || (len(token) > 3 && token[2] != ':') {
		return Tag{}, fmt.Errorf("%w: %q (required TAG:VALUE)", errs.ErrInvalidTagFormat, token)
	}
	tag := Tag{
		ID:    ID{token[0], token[1]},
		Value: Text(""),
	}
	if len(token) > 3 {
		tag.Value = InferValue(token[3:])
	}
	return tag, nil
}

// InferValue types a text token: an integer when it has no '.' and parses
// as a base 10 integer, a real when it has a '.' and parses as a float,
// text otherwise. It never fails.
func InferValue(text string) Value {
	if !strings.Contains(text, ".") {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Integer(n)
		}
		return Text(text)
	}
	if f, err := strconv.ParseFloat(text, 32); err == nil {
		return Real(f)
	}
	return Text(text)
}
