package heap

import "reflect"

// String is a growable owning byte buffer that doubles its capacity on
// append, mirroring the original kernel's APPEND-macro-backed String type.
type String struct {
	contents []byte
}

// NewString returns an empty owning string.
func NewString() String {
	return String{}
}

// Len returns the number of bytes currently stored.
func (s *String) Len() int { return len(s.contents) }

// Bytes returns the string's contents. The returned slice aliases the
// string's storage and must not be retained across further appends.
func (s *String) Bytes() []byte { return s.contents }

func (s *String) String() string { return string(s.contents) }

func (s *String) grow(extra int) {
	need := len(s.contents) + extra
	if need <= cap(s.contents) {
		return
	}
	newCap := cap(s.contents)
	if newCap == 0 {
		newCap = 8
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(s.contents), newCap)
	copy(grown, s.contents)
	s.contents = grown
}

// Appendable is the set of element types the owning string can append: a
// single byte or another string's contents, matching the original APPEND
// macro's use over both char and String operands.
type Appendable interface {
	~byte | ~string
}

// Append appends v (a byte or a string) to s, growing its backing array as
// needed.
func Append[T Appendable](s *String, v T) {
	switch x := any(v).(type) {
	case byte:
		s.grow(1)
		s.contents = append(s.contents, x)
	case string:
		s.grow(len(x))
		s.contents = append(s.contents, x...)
	default:
		// Named types defined over byte or string (the ~ in Appendable)
		// land here; append them by their underlying kind.
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			Append(s, rv.String())
		} else {
			Append(s, byte(rv.Uint()))
		}
	}
}

// StringList is an ordered list of owning strings, as produced by Split.
type StringList struct {
	Items []String
}

// Split splits s on delim into a list of owning strings. When
// reserveQuotes is true, occurrences of delim inside a double-quoted
// section do not split the string — used by the shell to let quoted
// arguments contain spaces. A trailing non-empty fragment is included.
func Split(s string, delim byte, reserveQuotes bool) StringList {
	var sl StringList
	var curr String
	inQuotes := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case reserveQuotes && c == '"':
			inQuotes = !inQuotes
			Append(&curr, c)
		case c == delim && !inQuotes:
			sl.Items = append(sl.Items, curr)
			curr = String{}
		default:
			Append(&curr, c)
		}
	}
	if curr.Len() > 0 {
		sl.Items = append(sl.Items, curr)
	}
	return sl
}
