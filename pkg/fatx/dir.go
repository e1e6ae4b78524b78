package fatx

const recordsPerCluster = clusterSize / recordSize // 256

// slotLoc identifies a single directory record's position: its containing
// cluster and absolute byte offset, so callers can both read it and later
// rewrite it in place via writeSlot without re-resolving the path.
type slotLoc struct {
	cluster uint32
	offset  int64 // absolute byte offset of the 64-byte slot
}

// readSlot decodes the record at loc.
func (v *Volume) readSlot(loc slotLoc) (record, error) {
	buf := make([]byte, recordSize)
	if _, err := v.dev.ReadAt(buf, loc.offset); err != nil {
		return record{}, newErr(KindIO, "read_slot", "", err)
	}
	return decodeRecord(buf), nil
}

// writeSlot serializes r and writes it to loc in place.
func (v *Volume) writeSlot(loc slotLoc, r record) error {
	if v.opts.ReadOnly {
		return newErr(KindReadOnly, "write_slot", "", nil)
	}
	buf := make([]byte, recordSize)
	encodeRecord(r, buf)
	if _, err := v.dev.WriteAt(buf, loc.offset); err != nil {
		return newErr(KindIO, "write_slot", "", err)
	}
	return nil
}

// iterDir calls fn for every active record in the directory whose first
// cluster is dirFirst, in on-disk order, stopping as soon as a 0xFF
// end-of-directory sentinel is encountered anywhere in the chain: by
// construction no active record ever follows one. fn may return stop=true
// to end iteration early.
func (v *Volume) iterDir(dirFirst uint32, fn func(loc slotLoc, r record) (stop bool, err error)) error {
	return v.walkChain(dirFirst, func(cluster uint32) error {
		base := v.clusterOffset(cluster)
		for i := 0; i < recordsPerCluster; i++ {
			loc := slotLoc{cluster: cluster, offset: base + int64(i)*recordSize}
			r, err := v.readSlot(loc)
			if err != nil {
				return err
			}
			if r.isEndOfDir() {
				return errStopWalk
			}
			if r.isDeleted() {
				continue
			}
			if !r.isActive() {
				if v.opts.StrictCorruption {
					return newErr(KindCorrupt, "iter_dir", "", nil)
				}
				continue
			}
			stop, err := fn(loc, r)
			if err != nil {
				return err
			}
			if stop {
				return errStopWalk
			}
		}
		return nil
	})
}

// errStopWalk is a sentinel walkChain-internal error used to end iteration
// early without surfacing as a real failure to iterDir's caller.
var errStopWalk = newErr(KindCorrupt, "internal_stop", "", nil)

// runIter drives iterDir but translates the internal errStopWalk sentinel
// back into a clean nil. It exists so iterDir's callers don't need to know
// about the sentinel at all.
func (v *Volume) runIter(dirFirst uint32, fn func(loc slotLoc, r record) (stop bool, err error)) error {
	err := v.iterDir(dirFirst, fn)
	if err == errStopWalk {
		return nil
	}
	return err
}

// lookupDir finds the active record named name (case-insensitive,
// exact-length match) directly under dirFirst.
func (v *Volume) lookupDir(dirFirst uint32, name string) (slotLoc, record, error) {
	var found slotLoc
	var foundRec record
	ok := false
	err := v.runIter(dirFirst, func(loc slotLoc, r record) (bool, error) {
		if namesEqual(name, r.name, r.nameLen) {
			found, foundRec, ok = loc, r, true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return slotLoc{}, record{}, err
	}
	if !ok {
		return slotLoc{}, record{}, newErr(KindNotFound, "lookup", name, nil)
	}
	return found, foundRec, nil
}

// findFreeSlot returns the first slot in dirFirst's chain whose name_length
// is 0xFF or 0xE5, extending the directory by one cluster if none
// exists. The returned slot's current 0xFF/0xE5 state is left untouched;
// callers write the new record via writeSlot.
func (v *Volume) findFreeSlot(dirFirst uint32) (slotLoc, error) {
	var found slotLoc
	ok := false
	err := v.walkChain(dirFirst, func(cluster uint32) error {
		base := v.clusterOffset(cluster)
		for i := 0; i < recordsPerCluster; i++ {
			loc := slotLoc{cluster: cluster, offset: base + int64(i)*recordSize}
			r, err := v.readSlot(loc)
			if err != nil {
				return err
			}
			if r.isEndOfDir() || r.isDeleted() {
				found, ok = loc, true
				return errStopWalk
			}
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return slotLoc{}, err
	}
	if ok {
		return found, nil
	}
	return v.growDirectory(dirFirst)
}

// growDirectory appends one freshly 0xFF-filled cluster to the
// directory's chain and returns its first slot.
func (v *Volume) growDirectory(dirFirst uint32) (slotLoc, error) {
	if v.opts.ReadOnly {
		return slotLoc{}, newErr(KindReadOnly, "grow_directory", "", nil)
	}
	if err := v.extendChain(dirFirst, 1); err != nil {
		return slotLoc{}, err
	}
	tail, err := v.chainTail(dirFirst)
	if err != nil {
		return slotLoc{}, err
	}
	if err := v.initDirCluster(tail); err != nil {
		return slotLoc{}, err
	}
	return slotLoc{cluster: tail, offset: v.clusterOffset(tail)}, nil
}

// initDirCluster fills an entire cluster with 0xFF bytes, marking every
// slot in it as end-of-directory.
func (v *Volume) initDirCluster(cluster uint32) error {
	buf := make([]byte, clusterSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	if _, err := v.dev.WriteAt(buf, v.clusterOffset(cluster)); err != nil {
		return newErr(KindIO, "init_dir_cluster", "", err)
	}
	return nil
}

// terminateNextSlot ensures the slot immediately following loc, if it lies
// within the same cluster, still reads as end-of-directory. Reusing a 0xFF
// sentinel slot to allocate a new entry must not expose stale/uninitialized
// bytes in the slot after it as spuriously active.
func (v *Volume) terminateNextSlot(loc slotLoc) error {
	nextOffset := loc.offset + recordSize
	clusterStart := v.clusterOffset(loc.cluster)
	if nextOffset >= clusterStart+clusterSize {
		return nil // next slot is in a different (already-initialized) cluster
	}
	r, err := v.readSlot(slotLoc{cluster: loc.cluster, offset: nextOffset})
	if err != nil {
		return err
	}
	if r.isEndOfDir() {
		return nil // already a terminator
	}
	return v.writeSlot(slotLoc{cluster: loc.cluster, offset: nextOffset}, record{nameLen: nameLenEndOfDir})
}
