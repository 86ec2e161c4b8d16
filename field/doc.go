// Package field declares the typed field catalogs that structures are
// built from: semantic kinds, per-field descriptors, ordered definitions
// and the converter registry for mapped logical types.
//
// A Definition carries its fields in explicit declaration order. The order
// is authoritative for layout; nothing is derived from Go reflection.
package field
