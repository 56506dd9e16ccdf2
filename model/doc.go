// Package model defines the registry's data model: identifiers, signatures,
// identity records, the tagged storage key union, and their canonical encoding.
//
// Every byte that is persisted or signed is produced by this package, so two
// peers that agree on a value always agree on its bytes.
package model
