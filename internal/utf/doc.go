// Package utf decodes the self-describing "@UTF" tables used by CPK
// containers.
//
// A table is a column schema (name, type, storage class) followed by fixed
// width rows, a NUL-terminated string pool, and a byte-array pool. All
// integers are big-endian. Decoded rows are bound onto Go structs through an
// explicit per-type Binding rather than reflection, so unknown vendor columns
// are kept deterministically instead of being dropped.
package utf
