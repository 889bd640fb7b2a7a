// Package gallery implements the bounded on-disk gallery of generated
// images.
//
// State lives in one directory: an index.json holding an ordered array of
// items (insertion order = save order) and one <uuid>.png per item. The
// store owns both sides and keeps them consistent: an index entry implies
// the file exists, and deleting a file always removes its entry.
//
// The index read-modify-write is guarded by an in-process mutex plus a
// flock on the gallery directory, so concurrent saves and deletes from
// this process or a sibling cannot corrupt or drop entries. A missing or
// corrupt index is treated as empty rather than an error.
package gallery
