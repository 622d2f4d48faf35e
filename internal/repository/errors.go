// Package repository implements the MySQL ledger of the parking service.
// Lookups of absent rows return sql.ErrNoRows unchanged so that callers can
// test for it with errors.Is.
package repository

import "errors"

// ErrDuplicate is returned when an insert violates a unique key, such as
// a coupon code or transaction id that already exists.
var ErrDuplicate = errors.New("duplicate key")
