package importer

import (
	"gorm.io/gorm"
)

// Natural-key matching distinguishes three field states: unset (NULL),
// explicitly empty ("" or 0), and populated. The nullable column carries
// the distinction; these helpers build the WHERE clause so NULL matches
// only NULL and empty matches only empty.

// OptionalString returns nil for an absent remote field and the (possibly
// empty) value otherwise.
func OptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// OptionalInt wraps a resolved reference id; zero stays a real value.
func OptionalInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func whereOptionalString(q *gorm.DB, column string, v *string) *gorm.DB {
	if v == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *v)
}

func whereOptionalInt(q *gorm.DB, column string, v *int) *gorm.DB {
	if v == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *v)
}
