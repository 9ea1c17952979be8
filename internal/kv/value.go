package kv

// Value is the typed payload this slice deals in: a raw byte string. A nil
// Value paired with isTombstone == true denotes a deletion; a nil Value with
// isTombstone == false is indistinguishable from "no such version" and is
// never constructed directly — callers get NONE via an error return instead.
type Value []byte

// NoValue is the distinguished "no such version visible" value.
var NoValue Value = nil
