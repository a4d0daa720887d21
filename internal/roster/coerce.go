package roster

import (
	"fmt"
	"strconv"
	"strings"
)

// Spreadsheet cells arrive from the workbook as formatted strings whose
// origin type (text, number, boolean, date, empty) is no longer visible.
// The two coercion functions below give that conversion defined behavior
// instead of ad-hoc fallbacks: text fields are trimmed, booleans keep their
// TRUE/FALSE form, and ages must parse as a whole number.

// coerceString normalizes a raw cell into a trimmed text value.  Empty and
// whitespace-only cells become "".
func coerceString(cell string) string {
	return strings.TrimSpace(cell)
}

// coerceAge converts a raw cell into a participant age.  Integer text is
// accepted directly; decimal text (a numeric cell formatted with a
// fraction) is truncated the way the original template handled it.  Any
// other content is a per-cell error; callers treat that as age 0 and skip
// the row.
func coerceAge(cell string) (int, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, fmt.Errorf("empty age cell")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), nil
	}
	return 0, fmt.Errorf("age %q is not a number", s)
}
