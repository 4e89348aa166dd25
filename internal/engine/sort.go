package engine

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Sorter orders result rows by a cascade of sort keys.
//
// Strings compare with the collation rules of the sorter's language.
// A Sorter holds no mutable state and is safe for concurrent use; each
// Sort call builds its own collator.
type Sorter struct {
	tag language.Tag
}

// NewSorter returns a Sorter collating strings for tag.
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{tag: tag}
}

// DefaultSorter collates with the root (language-neutral) locale.
func DefaultSorter() *Sorter {
	return NewSorter(language.Und)
}

// Sort returns a new slice holding rows ordered by keys. rows is not modified.
//
// The first key with a non-zero comparison decides. Null sorts after every
// defined value in both directions; direction only flips defined values.
// Rows that tie on every key keep their input order.
func (s *Sorter) Sort(rows []record.Record, keys []query.SortKey) []record.Record {
	out := slices.Clone(rows)
	if len(keys) == 0 || len(out) < 2 {
		return out
	}

	col := collate.New(s.tag)
	slices.SortStableFunc(out, func(a, b record.Record) int {
		for _, k := range keys {
			if c := compareForSort(col, a[k.FieldID], b[k.FieldID], k.Descending()); c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

// compareForSort compares two field values with nulls-last, then direction.
func compareForSort(col *collate.Collator, a, b any, desc bool) int {
	aNull, bNull := record.IsNull(a), record.IsNull(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return 1
	case bNull:
		return -1
	}

	c := compareDefined(col, a, b)
	if desc {
		return -c
	}
	return c
}

// compareDefined compares two non-null values: numbers and numeric strings
// numerically, times chronologically, booleans false-first, anything else by
// collation. Numeric values order before non-numeric ones so that mixed
// columns stay transitive.
func compareDefined(col *collate.Collator, a, b any) int {
	af, aNum := record.AsNumber(a)
	bf, bNum := record.AsNumber(b)
	switch {
	case aNum && bNum:
		return cmpFloat(af, bf)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return col.CompareString(record.String(a), record.String(b))
}
