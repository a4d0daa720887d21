package model

// FieldOffice is a row in the `field_offices` table.  Field offices are
// static reference data: one regional administrative unit with isolated
// registration oversight.  Registrations reference an office by id.
//
// Fields:
//
//	ID   – primary key identifier.
//	Code – short stable code used on public forms (e.g. "cotabato").
//	Name – display name (e.g. "Cotabato City").
type FieldOffice struct {
	ID   uint64 // field_offices.id
	Code string // field_offices.code
	Name string // field_offices.name
}
