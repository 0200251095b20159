package domain

import (
	"fmt"
	"strings"
)

// NormalizeKey uppercases a province name and strips surrounding whitespace so
// that "Madrid " and "MADRID" compare equal. It is idempotent.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeColumn rewrites column in place with NormalizeKey. Null cells stay
// null; numeric cells are normalized through their text form.
func NormalizeColumn(t *Table, column string) error {
	if !t.HasColumn(column) {
		return fmt.Errorf("normalize %q in %q: %w", column, t.Name, ErrColumnNotFound)
	}
	for i := range t.Rows {
		v := t.Rows[i].Get(column)
		if v.IsNull() {
			continue
		}
		t.Rows[i].Values[column] = Text(NormalizeKey(v.String()))
	}
	return nil
}
