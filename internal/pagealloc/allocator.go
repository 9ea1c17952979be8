package pagealloc

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Frankenstein-xin/wiredtiger/internal/metrics"
	"github.com/Frankenstein-xin/wiredtiger/internal/wtlog"
)

// Allocator owns a set of regions and the pages carved out of them. All
// operations that touch region or slot state take the allocator lock;
// alloc_page blocks on it the same way, and zalloc blocks on the same lock
// scoped to the owner page's region.
type Allocator struct {
	log zerolog.Logger

	mu          sync.Mutex
	regionSize  int
	maxRegions  int
	regions     []*Region
	nextPageID  uint64
	outstanding int
}

// New constructs an Allocator with the given region byte-size and maximum
// region count. regionSize is the largest page AllocPage accepts and each
// region's spill budget; it must be at least slotsPerRegion.
func New(regionSize, maxRegionCount int) (*Allocator, error) {
	if regionSize < slotsPerRegion {
		return nil, fmt.Errorf("pagealloc: region_size %d too small for %d slots: %w", regionSize, slotsPerRegion, ErrInvalidArgument)
	}
	if maxRegionCount <= 0 {
		return nil, fmt.Errorf("pagealloc: region_count must be positive, got %d: %w", maxRegionCount, ErrInvalidArgument)
	}
	return &Allocator{
		log:        wtlog.WithComponent("pagealloc"),
		regionSize: regionSize,
		maxRegions: maxRegionCount,
	}, nil
}

// RegionCount returns the number of regions currently held.
func (a *Allocator) RegionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.regions)
}

// AllocPage allocates a page of at least size bytes from an existing region
// with a free slot, or from a freshly-added region if none has room and the
// region_count cap allows growth.
func (a *Allocator) AllocPage(size int) (*Page, error) {
	if size > a.regionSize {
		return nil, fmt.Errorf("pagealloc: page size %d exceeds region capacity %d: %w", size, a.regionSize, ErrPageTooLarge)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.regions {
		if slot, ok := r.allocSlot(); ok {
			return a.newPageLocked(r, slot, size), nil
		}
	}

	if len(a.regions) >= a.maxRegions {
		return nil, fmt.Errorf("pagealloc: alloc_page: %w", ErrOutOfCapacity)
	}
	r := a.addRegionLocked()
	slot, _ := r.allocSlot()
	return a.newPageLocked(r, slot, size), nil
}

func (a *Allocator) newPageLocked(r *Region, slot, size int) *Page {
	a.nextPageID++
	p := &Page{ID: a.nextPageID, Size: size, Buf: make([]byte, size), region: r, slot: slot}
	r.slots[slot] = p
	a.outstanding++
	metrics.PagesAllocated.Set(float64(a.outstanding))
	return p
}

func (a *Allocator) addRegionLocked() *Region {
	r := newRegion(a.regionSize)
	a.regions = append(a.regions, r)
	metrics.RegionCount.Set(float64(len(a.regions)))
	a.log.Debug().Str("region_id", r.ID.String()).Int("region_count", len(a.regions)).Msg("region added")
	return r
}

// Zalloc allocates bytes tied to owner's lifetime. A request of 0 bytes
// returns the null sentinel (nil, nil) without failing. If the owner's
// region has insufficient spill room, the allocator spills into a
// freshly-added region — region_count grows by exactly one.
func (a *Allocator) Zalloc(bytes int, owner *Page) ([]byte, error) {
	if bytes == 0 {
		return nil, nil
	}
	if owner == nil || owner.region == nil {
		return nil, fmt.Errorf("pagealloc: zalloc: %w", ErrForeignPage)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	r := owner.region
	if r.spillUsed+bytes > r.spillCap {
		if len(a.regions) >= a.maxRegions {
			return nil, fmt.Errorf("pagealloc: zalloc spill: %w", ErrOutOfCapacity)
		}
		r = a.addRegionLocked()
	}

	r.spillUsed += bytes
	r.spillOwned[owner] += bytes
	buf := make([]byte, bytes)
	owner.spills = append(owner.spills, spillRef{region: r, bytes: bytes})
	return buf, nil
}

// FreePage releases page's slot and every spill allocation it owns. A
// region left with no occupied slots and no outstanding spill allocations
// is released immediately, decrementing region_count.
func (a *Allocator) FreePage(page *Page) error {
	if page == nil || page.region == nil {
		return fmt.Errorf("pagealloc: free_page: %w", ErrForeignPage)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	home := page.region
	home.freeSlot(page.slot)
	home.slots[page.slot] = nil

	touched := map[*Region]struct{}{home: {}}
	for _, s := range page.spills {
		s.region.spillUsed -= s.bytes
		delete(s.region.spillOwned, page)
		touched[s.region] = struct{}{}
	}
	page.spills = nil
	page.region = nil

	a.outstanding--
	metrics.PagesAllocated.Set(float64(a.outstanding))

	for r := range touched {
		a.releaseIfEmptyLocked(r)
	}
	return nil
}

func (a *Allocator) releaseIfEmptyLocked(r *Region) {
	if !r.isEmpty() {
		return
	}
	for i, candidate := range a.regions {
		if candidate == r {
			a.regions = append(a.regions[:i], a.regions[i+1:]...)
			break
		}
	}
	metrics.RegionCount.Set(float64(len(a.regions)))
	a.log.Debug().Str("region_id", r.ID.String()).Int("region_count", len(a.regions)).Msg("region released")
}

// Destroy releases all regions. It refuses to do so while pages are still
// outstanding.
func (a *Allocator) Destroy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outstanding != 0 {
		return fmt.Errorf("pagealloc: destroy: %d pages outstanding: %w", a.outstanding, ErrOutstandingPages)
	}
	a.regions = nil
	return nil
}
