// Package sanitizer normalizes caller input before validation and storage.
//
// All functions are idempotent: applying them twice yields the same result.
// Invalid input is returned in a form the validators will reject rather than
// as an error.
//
// Normalization includes:
//   - Room names: trim, collapse inner whitespace, drop control characters
//   - Identifiers: trim surrounding whitespace
//   - Dates and times of day: trim, so "09:00 " parses like "09:00"
package sanitizer
