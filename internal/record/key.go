package record

import (
	"strconv"
	"strings"
)

// Key is a comparable, collision-free encoding of a tuple of values.
// It is only meaningful as a map key; do not parse it.
type Key string

// KeyOf encodes values into a Key.
//
// Non-null values are grouped by their String form, so int64(1), 1.0 and "1"
// land in the same group. Nil is encoded with its own tag and never matches
// any string, including "null" or "".
func KeyOf(values ...any) Key {
	var b strings.Builder
	for _, v := range values {
		if IsNull(v) {
			b.WriteByte('n')
			continue
		}
		s := String(v)
		b.WriteByte('s')
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return Key(b.String())
}
