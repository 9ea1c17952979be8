package pagealloc

// Page is a single allocated page slot: a byte buffer of at least the
// requested size, owned by one region slot, plus whatever spill
// allocations have been tied to its lifetime via Zalloc.
type Page struct {
	ID   uint64
	Size int
	Buf  []byte

	region *Region
	slot   int
	spills []spillRef
}
