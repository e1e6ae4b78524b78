package fatx

import "strings"

// resolved is the outcome of resolving a path: where its directory record
// lives (absent for the root, which has none) and where its data begins.
type resolved struct {
	loc     slotLoc // zero value (cluster 0) means "root, no record"
	rec     record  // zero value for root; synthesized by callers that need it
	isRoot  bool
	dirSelf uint32 // first cluster of the directory this entry lives in
}

// splitPath splits a path into non-empty components, tolerating leading,
// trailing, and repeated slashes.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolvePath walks path from the root directory component by component.
// A non-terminal component that isn't a directory fails NotDirectory; a
// missing component fails NotFound.
func (v *Volume) resolvePath(path string) (resolved, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return resolved{isRoot: true, dirSelf: rootCluster}, nil
	}

	dir := rootCluster
	for i, name := range parts {
		if len(name) > maxNameLen {
			return resolved{}, newErr(KindNameTooLong, "resolve", name, nil)
		}
		loc, rec, err := v.lookupDir(dir, name)
		if err != nil {
			return resolved{}, err
		}
		if i == len(parts)-1 {
			return resolved{loc: loc, rec: rec, dirSelf: dir}, nil
		}
		if !rec.isDir() {
			return resolved{}, newErr(KindNotDirectory, "resolve", name, nil)
		}
		dir = rec.first
		if dir == 0 {
			// An empty directory's first cluster is 0 only if it was never
			// materialized; a directory record always gets one on create
			// (see ops.go mkdir), so this indicates corruption.
			return resolved{}, newErr(KindCorrupt, "resolve", name, nil)
		}
	}
	return resolved{isRoot: true, dirSelf: rootCluster}, nil
}

// resolveParent resolves all but the last component of path and returns the
// first cluster of the resulting directory plus the final component's
// basename, for operations (create, mkdir, rename) that need to
// locate a containing directory without requiring the final name to
// already exist.
func (v *Volume) resolveParent(path string) (dirFirst uint32, base string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return 0, "", newErr(KindExists, "resolve_parent", path, nil)
	}
	base = parts[len(parts)-1]
	if len(base) > maxNameLen {
		return 0, "", newErr(KindNameTooLong, "resolve_parent", base, nil)
	}

	dir := rootCluster
	for _, name := range parts[:len(parts)-1] {
		_, rec, err := v.lookupDir(dir, name)
		if err != nil {
			return 0, "", err
		}
		if !rec.isDir() {
			return 0, "", newErr(KindNotDirectory, "resolve_parent", name, nil)
		}
		dir = rec.first
	}
	return dir, base, nil
}
