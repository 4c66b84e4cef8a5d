// Package dataset loads the confirmed, deaths and recovered COVID-19 time
// series and aggregates them into region x date matrices plus per-date
// global totals.
//
// A Dataset is built once by Load (or Build) and is read-only afterwards, so
// it can be shared between goroutines without locking.
package dataset
