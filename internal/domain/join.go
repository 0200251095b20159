package domain

import (
	"fmt"
	"slices"
)

// LeftJoin merges secondary onto primary by key. Every primary row is kept and
// multiplied by the number of matching secondary rows; primary rows with no
// match get null for every secondary column. Geometry comes from primary.
//
// When a column exists on both sides the primary's copy wins and the
// secondary's is dropped (see CollidingColumns).
func LeftJoin(primary, secondary *Table, key string) (*Table, error) {
	return join(primary, secondary, key, true)
}

// InnerJoin keeps only rows whose key is present on both sides.
func InnerJoin(left, right *Table, key string) (*Table, error) {
	return join(left, right, key, false)
}

// CollidingColumns lists the non-key columns of secondary that already exist in
// primary and are therefore dropped by a join.
func CollidingColumns(primary, secondary *Table, key string) []string {
	var out []string
	for _, c := range secondary.Columns {
		if c != key && primary.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

// Unmatched returns the distinct keys of primary with no row in secondary, in
// first-seen order. These are the provinces a left join leaves blank.
func Unmatched(primary, secondary *Table, key string) []string {
	index := indexBy(secondary, key)
	seen := make(map[string]struct{})
	var out []string
	for _, r := range primary.Rows {
		k, ok := joinKey(r, key)
		if !ok {
			continue
		}
		if _, found := index[k]; found {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func join(left, right *Table, key string, keepUnmatched bool) (*Table, error) {
	if !left.HasColumn(key) {
		return nil, fmt.Errorf("join %q: key %q in %q: %w", right.Name, key, left.Name, ErrColumnNotFound)
	}
	if !right.HasColumn(key) {
		return nil, fmt.Errorf("join %q: key %q in %q: %w", left.Name, key, right.Name, ErrColumnNotFound)
	}

	added := make([]string, 0, len(right.Columns))
	for _, c := range right.Columns {
		if c == key || left.HasColumn(c) {
			continue
		}
		added = append(added, c)
	}

	out := NewTable(left.Name+"+"+right.Name, append(slices.Clone(left.Columns), added...))
	index := indexBy(right, key)

	for _, lr := range left.Rows {
		var matches []int
		if k, ok := joinKey(lr, key); ok {
			matches = index[k]
		}
		if len(matches) == 0 {
			if !keepUnmatched {
				continue
			}
			values := copyValues(lr.Values)
			for _, c := range added {
				values[c] = Null()
			}
			out.Append(values, lr.Geometry)
			continue
		}
		for _, m := range matches {
			rr := right.Rows[m]
			values := copyValues(lr.Values)
			for _, c := range added {
				values[c] = rr.Get(c)
			}
			out.Append(values, lr.Geometry)
		}
	}
	return out, nil
}

func indexBy(t *Table, key string) map[string][]int {
	index := make(map[string][]int, len(t.Rows))
	for i, r := range t.Rows {
		k, ok := joinKey(r, key)
		if !ok {
			continue
		}
		index[k] = append(index[k], i)
	}
	return index
}

// joinKey returns the row's key as text. Null keys never match.
func joinKey(r Row, key string) (string, bool) {
	v := r.Get(key)
	if v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// Filter returns the rows for which keep returns true.
func Filter(t *Table, keep func(Row) bool) *Table {
	out := NewTable(t.Name, t.Columns)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// FilterPeriod keeps the rows whose year and month columns equal the given period.
func FilterPeriod(t *Table, year, month int) *Table {
	return Filter(t, func(r Row) bool {
		y, ok := r.Get(ColYear).Int()
		if !ok || y != int64(year) {
			return false
		}
		m, ok := r.Get(ColMonth).Int()
		return ok && m == int64(month)
	})
}
