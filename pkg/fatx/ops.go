package fatx

import "time"

// FileInfo is the logical view of a file or directory record: everything
// stat/list need, independent of where it physically lives. All times are
// in timeLocation() (UTC by default).
type FileInfo struct {
	Name      string
	IsDir     bool
	Size      uint64
	Created   time.Time
	Modified  time.Time
	Accessed  time.Time
	firstClus uint32
}

func (v *Volume) infoFromRecord(r record) FileInfo {
	return FileInfo{
		Name:      r.nameString(),
		IsDir:     r.isDir(),
		Size:      uint64(r.size),
		Created:   decodeFATXTime(r.created),
		Modified:  decodeFATXTime(r.modified),
		Accessed:  decodeFATXTime(r.accessed),
		firstClus: r.first,
	}
}

func (v *Volume) rootInfo() FileInfo {
	epoch := decodeFATXTime(0)
	return FileInfo{Name: "", IsDir: true, Size: 0, Created: epoch, Modified: epoch, Accessed: epoch, firstClus: rootCluster}
}

// Stat resolves path and returns its metadata.
func (v *Volume) Stat(path string) (FileInfo, error) {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	r, err := v.resolvePath(path)
	if err != nil {
		return FileInfo{}, err
	}
	if r.isRoot && r.loc == (slotLoc{}) {
		return v.rootInfo(), nil
	}
	return v.infoFromRecord(r.rec), nil
}

// List resolves path, which must be a directory, and calls visitor once
// per active entry. visitor must not re-enter the engine.
func (v *Volume) List(path string, visitor func(FileInfo)) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	dirFirst, err := v.dirClusterForList(path)
	if err != nil {
		return err
	}
	return v.runIter(dirFirst, func(_ slotLoc, r record) (bool, error) {
		visitor(v.infoFromRecord(r))
		return false, nil
	})
}

func (v *Volume) dirClusterForList(path string) (uint32, error) {
	r, err := v.resolvePath(path)
	if err != nil {
		return 0, err
	}
	if r.isRoot && r.loc == (slotLoc{}) {
		return rootCluster, nil
	}
	if !r.rec.isDir() {
		return 0, newErr(KindNotDirectory, "list", path, nil)
	}
	return r.rec.first, nil
}

// Read fills buf from path's data starting at offset and returns the
// number of bytes actually read, which may be less than len(buf) if the
// read reaches end of file. Reading at or past the file's size
// returns (0, nil).
func (v *Volume) Read(path string, buf []byte, offset int64) (int, error) {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	r, err := v.resolvePath(path)
	if err != nil {
		return 0, err
	}
	if r.isRoot && r.loc == (slotLoc{}) {
		return 0, newErr(KindIsDirectory, "read", path, nil)
	}
	if r.rec.isDir() {
		return 0, newErr(KindIsDirectory, "read", path, nil)
	}

	size := int64(r.rec.size)
	if offset >= size {
		return 0, nil
	}
	want := len(buf)
	if int64(want) > size-offset {
		want = int(size - offset)
	}
	if want == 0 {
		return 0, nil
	}

	return v.readFromChain(r.rec.first, buf[:want], offset)
}

// readFromChain reads n bytes (len(dst)) from a file's cluster chain
// starting at logical offset, advancing through the FAT as needed.
func (v *Volume) readFromChain(first uint32, dst []byte, offset int64) (int, error) {
	clusterIdx := offset / clusterSize
	intraOff := offset % clusterSize

	cluster, err := v.walkToClusterIndex(first, int(clusterIdx))
	if err != nil {
		return 0, err
	}

	visited := map[uint32]bool{cluster: true}
	read := 0
	for read < len(dst) {
		chunk := int(clusterSize - intraOff)
		if chunk > len(dst)-read {
			chunk = len(dst) - read
		}
		off := v.clusterOffset(cluster) + intraOff
		n, err := v.dev.ReadAt(dst[read:read+chunk], off)
		read += n
		if err != nil {
			return read, newErr(KindIO, "read", "", err)
		}
		intraOff = 0
		if read == len(dst) {
			break
		}
		next := v.fatNext(cluster)
		if v.fatIsBad(next) || v.fatIsEOC(next) || v.fatIsFree(next) || !v.validCluster(next) {
			return read, newErr(KindCorrupt, "read", "", nil)
		}
		if visited[next] {
			return read, newErr(KindCorrupt, "read", "", nil)
		}
		visited[next] = true
		cluster = next
	}
	return read, nil
}

// walkToClusterIndex advances n clusters from first and returns the
// resulting cluster. first is validated before use, since it usually
// comes straight from an on-disk record's first_cluster field and a
// corrupted value must never be used to index the FAT table directly.
func (v *Volume) walkToClusterIndex(first uint32, n int) (uint32, error) {
	if !v.validCluster(first) {
		return 0, newErr(KindCorrupt, "walk", "", nil)
	}
	cluster := first
	visited := map[uint32]bool{cluster: true}
	for i := 0; i < n; i++ {
		next := v.fatNext(cluster)
		if v.fatIsBad(next) || v.fatIsEOC(next) || v.fatIsFree(next) || !v.validCluster(next) {
			return 0, newErr(KindCorrupt, "walk", "", nil)
		}
		if visited[next] {
			return 0, newErr(KindCorrupt, "walk", "", nil)
		}
		visited[next] = true
		cluster = next
	}
	return cluster, nil
}

// Write writes buf to path's data at offset, extending the file if the
// write reaches past its current size, and updates modified.
func (v *Volume) Write(path string, buf []byte, offset int64) (int, error) {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if v.opts.ReadOnly {
		return 0, newErr(KindReadOnly, "write", path, nil)
	}

	r, err := v.resolvePath(path)
	if err != nil {
		return 0, err
	}
	if r.isRoot && r.loc == (slotLoc{}) || r.rec.isDir() {
		return 0, newErr(KindIsDirectory, "write", path, nil)
	}

	needSize := offset + int64(len(buf))
	first := r.rec.first
	curSize := int64(r.rec.size)

	if needSize > curSize {
		var err error
		first, err = v.resizeChain(first, needSize)
		if err != nil {
			return 0, err
		}
	}

	n, err := v.writeToChain(first, buf, offset)
	if err != nil {
		return n, err
	}

	newSize := curSize
	if needSize > newSize {
		newSize = needSize
	}
	r.rec.first = first
	r.rec.size = uint32(newSize)
	r.rec.modified = encodeFATXTime(time.Now())
	if err := v.writeSlot(r.loc, r.rec); err != nil {
		return n, err
	}
	return n, nil
}

func (v *Volume) writeToChain(first uint32, src []byte, offset int64) (int, error) {
	clusterIdx := offset / clusterSize
	intraOff := offset % clusterSize

	cluster, err := v.walkToClusterIndex(first, int(clusterIdx))
	if err != nil {
		return 0, err
	}

	visited := map[uint32]bool{cluster: true}
	written := 0
	for written < len(src) {
		chunk := int(clusterSize - intraOff)
		if chunk > len(src)-written {
			chunk = len(src) - written
		}
		off := v.clusterOffset(cluster) + intraOff
		n, err := v.dev.WriteAt(src[written:written+chunk], off)
		written += n
		if err != nil {
			return written, newErr(KindIO, "write", "", err)
		}
		intraOff = 0
		if written == len(src) {
			break
		}
		next := v.fatNext(cluster)
		if v.fatIsBad(next) || v.fatIsEOC(next) || v.fatIsFree(next) || !v.validCluster(next) {
			return written, newErr(KindCorrupt, "write", "", nil)
		}
		if visited[next] {
			return written, newErr(KindCorrupt, "write", "", nil)
		}
		visited[next] = true
		cluster = next
	}
	return written, nil
}

// clustersNeeded returns ceil(size/clusterSize), minimum 1.
func clustersNeeded(size int64) int {
	if size <= 0 {
		return 1
	}
	n := (size + clusterSize - 1) / clusterSize
	return int(n)
}

// resizeChain grows first's chain, allocating it fresh if first is 0, so
// that it has at least clustersNeeded(newSize) clusters, and returns the
// (possibly newly allocated) first cluster.
func (v *Volume) resizeChain(first uint32, newSize int64) (uint32, error) {
	needed := clustersNeeded(newSize)
	if first == 0 {
		return v.allocateChain(needed)
	}
	have, err := v.chainLength(first)
	if err != nil {
		return 0, err
	}
	if have < needed {
		if err := v.extendChain(first, needed-have); err != nil {
			return 0, err
		}
	}
	return first, nil
}

// Create adds a new, empty file record named by the basename of path
// inside its parent directory.
func (v *Volume) Create(path string, isDir bool) (FileInfo, error) {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if v.opts.ReadOnly {
		return FileInfo{}, newErr(KindReadOnly, "create", path, nil)
	}

	dirFirst, base, err := v.resolveParent(path)
	if err != nil {
		return FileInfo{}, err
	}
	if len(base) == 0 || len(base) > maxNameLen {
		return FileInfo{}, newErr(KindNameTooLong, "create", base, nil)
	}
	if _, _, err := v.lookupDir(dirFirst, base); err == nil {
		return FileInfo{}, newErr(KindExists, "create", path, nil)
	} else if k, _ := KindOf(err); k != KindNotFound {
		return FileInfo{}, err
	}

	first, err := v.allocateChain(1)
	if err != nil {
		return FileInfo{}, err
	}

	if isDir {
		if err := v.initDirCluster(first); err != nil {
			return FileInfo{}, err
		}
	}

	loc, err := v.findFreeSlot(dirFirst)
	if err != nil {
		_ = v.freeChain(first)
		return FileInfo{}, err
	}
	wasEndOfDir := func() bool {
		r, err := v.readSlot(loc)
		return err == nil && r.isEndOfDir()
	}()

	now := time.Now()
	var r record
	applyMutation(&r, createMutation(base, isDir, first, now), now)
	if err := v.writeSlot(loc, r); err != nil {
		_ = v.freeChain(first)
		return FileInfo{}, err
	}
	if wasEndOfDir {
		if err := v.terminateNextSlot(loc); err != nil {
			return FileInfo{}, err
		}
	}

	return v.infoFromRecord(r), nil
}

// Mkdir is Create with isDir=true.
func (v *Volume) Mkdir(path string) (FileInfo, error) {
	return v.Create(path, true)
}

// Rename moves oldPath to newPath. Cross-directory rename is supported:
// the old slot is freed and a new slot is allocated in the destination
// directory, preserving first_cluster and timestamps; a same-directory
// rename rewrites the slot in place.
func (v *Volume) Rename(oldPath, newPath string) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if v.opts.ReadOnly {
		return newErr(KindReadOnly, "rename", oldPath, nil)
	}

	oldDir, oldBase, err := v.resolveParent(oldPath)
	if err != nil {
		return err
	}
	newDir, newBase, err := v.resolveParent(newPath)
	if err != nil {
		return err
	}
	if len(newBase) == 0 || len(newBase) > maxNameLen {
		return newErr(KindNameTooLong, "rename", newBase, nil)
	}

	loc, rec, err := v.lookupDir(oldDir, oldBase)
	if err != nil {
		return err
	}
	if _, _, err := v.lookupDir(newDir, newBase); err == nil {
		return newErr(KindExists, "rename", newPath, nil)
	}

	if oldDir == newDir {
		applyMutation(&rec, renameMutation(newBase), time.Now())
		return v.writeSlot(loc, rec)
	}

	newLoc, err := v.findFreeSlot(newDir)
	if err != nil {
		return err
	}
	wasEndOfDir := func() bool {
		r, err := v.readSlot(newLoc)
		return err == nil && r.isEndOfDir()
	}()

	moved := rec
	buf, n := encodeName(newBase)
	moved.name = buf
	moved.nameLen = n
	if err := v.writeSlot(newLoc, moved); err != nil {
		return err
	}
	if wasEndOfDir {
		if err := v.terminateNextSlot(newLoc); err != nil {
			return err
		}
	}

	applyMutation(&rec, unlinkMutation(), time.Now())
	return v.writeSlot(loc, rec)
}

// Unlink removes a file record.
func (v *Volume) Unlink(path string) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.remove(path, false)
}

// Rmdir removes an empty directory record.
func (v *Volume) Rmdir(path string) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.remove(path, true)
}

func (v *Volume) remove(path string, wantDir bool) error {
	if v.opts.ReadOnly {
		return newErr(KindReadOnly, "remove", path, nil)
	}

	r, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	if r.isRoot && r.loc == (slotLoc{}) {
		return newErr(KindIsDirectory, "remove", path, nil)
	}
	if wantDir && !r.rec.isDir() {
		return newErr(KindNotDirectory, "remove", path, nil)
	}
	if !wantDir && r.rec.isDir() {
		return newErr(KindIsDirectory, "remove", path, nil)
	}
	if wantDir {
		empty := true
		err := v.runIter(r.rec.first, func(slotLoc, record) (bool, error) {
			empty = false
			return true, nil
		})
		if err != nil {
			return err
		}
		if !empty {
			return newErr(KindNotEmpty, "remove", path, nil)
		}
	}

	if r.rec.first != 0 {
		if err := v.freeChain(r.rec.first); err != nil {
			return err
		}
	}
	applyMutation(&r.rec, unlinkMutation(), time.Now())
	return v.writeSlot(r.loc, r.rec)
}

// Truncate resizes path's data to newSize, growing or shrinking its
// cluster chain as needed. Writes that partially fail during a grow
// leave no newly allocated clusters attached (allocateChain rolls back on
// its own failure, and extendChain never partially links).
func (v *Volume) Truncate(path string, newSize uint64) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if v.opts.ReadOnly {
		return newErr(KindReadOnly, "truncate", path, nil)
	}

	r, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	if r.isRoot && r.loc == (slotLoc{}) || r.rec.isDir() {
		return newErr(KindIsDirectory, "truncate", path, nil)
	}

	curClusters, err := 0, error(nil)
	if r.rec.first != 0 {
		curClusters, err = v.chainLength(r.rec.first)
		if err != nil {
			return err
		}
	}
	needClusters := clustersNeeded(int64(newSize))

	first := r.rec.first
	switch {
	case first == 0:
		first, err = v.allocateChain(needClusters)
		if err != nil {
			return err
		}
	case needClusters > curClusters:
		if err := v.extendChain(first, needClusters-curClusters); err != nil {
			return err
		}
	case needClusters < curClusters:
		keep, err := v.nthCluster(first, needClusters)
		if err != nil {
			return err
		}
		if first, err = v.truncateChainAfter(first, keep); err != nil {
			return err
		}
	}

	r.rec.first = first
	r.rec.size = uint32(newSize)
	r.rec.modified = encodeFATXTime(time.Now())
	return v.writeSlot(r.loc, r.rec)
}

// nthCluster returns the nth (1-based count) cluster in the chain starting
// at first.
func (v *Volume) nthCluster(first uint32, n int) (uint32, error) {
	if n <= 0 {
		n = 1
	}
	return v.walkToClusterIndex(first, n-1)
}
