package cursor

// keyPage packs a contiguous run of a table's sorted keys into one backing
// array, the way a real B-tree leaf holds its slotted rows contiguously.
// A row's key is a sub-slice of buf: loading (or reloading) the page is the
// only point that copies key bytes; every row carved out of an
// already-loaded page is copy-free. This is what lets the cursor honor the
// "materialize a key only when the walk crosses into a new page" policy
// without hand-waving it away.
type keyPage struct {
	first   int // global key index of the page's first row
	buf     []byte
	offsets []int // len(keys)+1 entries; row i is buf[offsets[i]:offsets[i+1]]
}

func buildKeyPage(allKeys []string, first, count int) *keyPage {
	slice := allKeys[first : first+count]
	total := 0
	for _, k := range slice {
		total += len(k)
	}
	buf := make([]byte, 0, total)
	offsets := make([]int, count+1)
	for i, k := range slice {
		offsets[i] = len(buf)
		buf = append(buf, k...)
	}
	offsets[count] = len(buf)
	return &keyPage{first: first, buf: buf, offsets: offsets}
}

// contains reports whether the global key index i falls within this page.
func (p *keyPage) contains(i int) bool {
	local := i - p.first
	return local >= 0 && local < len(p.offsets)-1
}

// key returns the (copy-free) key bytes for global index i.
func (p *keyPage) key(i int) []byte {
	local := i - p.first
	return p.buf[p.offsets[local]:p.offsets[local+1]]
}
