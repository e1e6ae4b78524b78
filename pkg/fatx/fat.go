package fatx

// FAT entry sentinels. W=2 values are used directly; W=4 values are
// compared after masking to 28 bits, since the top 4 bits of a 4-byte entry
// are unused by any implementation this engine has to interoperate with.
const (
	entryFree16   = 0x0000
	entryBad16    = 0xFFF7
	entryEOC16    = 0xFFFF
	entryMaxUsed16 = 0xFFF5 // highest value treated as "next cluster" rather than EOC/bad

	entryFree32    = 0x00000000
	entryBad32     = 0x0FFFFFF7
	entryEOC32     = 0x0FFFFFFF
	entryMaxUsed32 = 0x0FFFFFF5
	entryMask32    = 0x0FFFFFFF
)

// rootCluster is the fixed first cluster index of the root directory: FATX
// has no separate root-dir pointer, cluster 1 always is it.
const rootCluster uint32 = 1

// fatNext returns the raw FAT entry for cluster normalized so callers never
// need to know the entry width: it returns the next cluster in the chain,
// or 0 for free, or a sentinel via the isEOC/isBad/isFree helpers below.
func (v *Volume) fatNext(cluster uint32) uint32 {
	raw := v.fat.get(cluster)
	if v.entryWidth == 4 {
		return raw & entryMask32
	}
	return raw
}

func (v *Volume) fatIsFree(entry uint32) bool {
	if v.entryWidth == 4 {
		return entry == entryFree32
	}
	return entry == entryFree16
}

func (v *Volume) fatIsBad(entry uint32) bool {
	if v.entryWidth == 4 {
		return entry == entryBad32
	}
	return entry == entryBad16
}

func (v *Volume) fatIsEOC(entry uint32) bool {
	if v.entryWidth == 4 {
		return entry > entryMaxUsed32
	}
	return entry > entryMaxUsed16
}

func (v *Volume) fatEOCValue() uint32 {
	if v.entryWidth == 4 {
		return entryEOC32
	}
	return entryEOC16
}

// fatSetNext writes cluster's FAT entry. A zero value frees it.
func (v *Volume) fatSetNext(cluster, value uint32) {
	v.fat.set(cluster, value)
}

// validCluster reports whether cluster is a valid, addressable data
// cluster index.
func (v *Volume) validCluster(cluster uint32) bool {
	return cluster >= 1 && cluster <= v.entryCount
}

// walkChain calls fn for every cluster in the chain starting at first, in
// order, stopping at the terminator. It defends against cycles with a
// visited set bounded by entryCount: if more steps than
// total clusters are taken, the chain is corrupt. The root directory's
// first cluster is always treated as a (possibly multi-cluster) chain like
// any other; only its cluster index (1) is special, not its chain-walking
// behavior.
func (v *Volume) walkChain(first uint32, fn func(cluster uint32) error) error {
	if first == 0 {
		return nil
	}
	if !v.validCluster(first) {
		return newErr(KindCorrupt, "walk_chain", "", nil)
	}

	visited := make(map[uint32]struct{}, 8)
	cur := first
	for {
		if _, seen := visited[cur]; seen {
			return newErr(KindCorrupt, "walk_chain", "", nil)
		}
		visited[cur] = struct{}{}
		if uint32(len(visited)) > v.entryCount {
			return newErr(KindCorrupt, "walk_chain", "", nil)
		}

		if err := fn(cur); err != nil {
			return err
		}

		next := v.fatNext(cur)
		if v.fatIsBad(next) {
			return newErr(KindCorrupt, "walk_chain", "", nil)
		}
		if v.fatIsEOC(next) {
			return nil
		}
		if v.fatIsFree(next) || !v.validCluster(next) {
			return newErr(KindCorrupt, "walk_chain", "", nil)
		}
		cur = next
	}
}

// chainClusters returns the ordered list of clusters in the chain starting
// at first.
func (v *Volume) chainClusters(first uint32) ([]uint32, error) {
	var out []uint32
	err := v.walkChain(first, func(c uint32) error {
		out = append(out, c)
		return nil
	})
	return out, err
}

// findFreeCluster scans the FAT linearly for a free entry. FATX has no free
// list or cursor in the on-disk format, so a linear scan from 1 is the
// straightforward, corpus-idiomatic approach; callers that allocate many
// clusters in a row should reuse a single scan position across calls via
// findFreeClusterFrom to avoid O(n^2) behavior.
func (v *Volume) findFreeCluster() (uint32, error) {
	return v.findFreeClusterFrom(1)
}

func (v *Volume) findFreeClusterFrom(start uint32) (uint32, error) {
	if start < 1 {
		start = 1
	}
	for c := start; c <= v.entryCount; c++ {
		if v.fatIsFree(v.fatNext(c)) {
			return c, nil
		}
	}
	for c := uint32(1); c < start; c++ {
		if v.fatIsFree(v.fatNext(c)) {
			return 0, newErr(KindNoSpace, "allocate", "", nil)
		}
	}
	return 0, newErr(KindNoSpace, "allocate", "", nil)
}

// allocateChain allocates n consecutive-in-chain (not necessarily
// consecutive-in-index) clusters and returns the first cluster of the new
// chain, with the FAT already linked and terminated.
func (v *Volume) allocateChain(n int) (uint32, error) {
	if n <= 0 {
		return 0, newErr(KindCorrupt, "allocate", "", nil)
	}
	clusters := make([]uint32, 0, n)
	scanFrom := uint32(1)
	for i := 0; i < n; i++ {
		c, err := v.findFreeClusterFrom(scanFrom)
		if err != nil {
			for _, alloc := range clusters {
				v.fatSetNext(alloc, 0)
			}
			return 0, err
		}
		clusters = append(clusters, c)
		scanFrom = c + 1
	}
	for i, c := range clusters {
		if i == len(clusters)-1 {
			v.fatSetNext(c, v.fatEOCValue())
		} else {
			v.fatSetNext(c, clusters[i+1])
		}
	}
	if err := v.fat.flush(); err != nil {
		return 0, err
	}
	return clusters[0], nil
}

// extendChain appends n new clusters to the end of the chain starting at
// first, linking the old tail to the first new cluster.
func (v *Volume) extendChain(first uint32, n int) error {
	tail, err := v.chainTail(first)
	if err != nil {
		return err
	}
	added, err := v.allocateChain(n)
	if err != nil {
		return err
	}
	v.fatSetNext(tail, added)
	return v.fat.flush()
}

func (v *Volume) chainTail(first uint32) (uint32, error) {
	tail := first
	err := v.walkChain(first, func(c uint32) error {
		tail = c
		return nil
	})
	return tail, err
}

// truncateChainAfter frees every cluster after keep in the chain starting
// at first, and marks keep as the new terminator. If keep is 0 the entire
// chain starting at first is freed and 0 is returned as the new first
// cluster.
func (v *Volume) truncateChainAfter(first, keep uint32) (uint32, error) {
	if keep == 0 {
		if err := v.freeChain(first); err != nil {
			return 0, err
		}
		return 0, nil
	}

	var toFree []uint32
	found := false
	err := v.walkChain(first, func(c uint32) error {
		if found {
			toFree = append(toFree, c)
		}
		if c == keep {
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, newErr(KindCorrupt, "truncate", "", nil)
	}
	v.fatSetNext(keep, v.fatEOCValue())
	for _, c := range toFree {
		v.fatSetNext(c, 0)
	}
	return first, v.fat.flush()
}

// freeChain releases every cluster in the chain starting at first.
func (v *Volume) freeChain(first uint32) error {
	clusters, err := v.chainClusters(first)
	if err != nil {
		return err
	}
	for _, c := range clusters {
		v.fatSetNext(c, 0)
	}
	return v.fat.flush()
}

// chainLength returns the number of clusters in the chain starting at
// first.
func (v *Volume) chainLength(first uint32) (int, error) {
	clusters, err := v.chainClusters(first)
	if err != nil {
		return 0, err
	}
	return len(clusters), nil
}
