//go:build linux
// +build linux

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fuse

import (
	"context"
	"os"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/gofatx/gofatx/internal/logger"
	"github.com/gofatx/gofatx/pkg/fatx"
)

// FS adapts a pkg/fatx.Volume to bazil.org/fuse's fs.FS: every request the
// kernel dispatches through bazil is translated into one or more engine
// calls, and the resulting fatx.Kind mapped to a fuse.Errno.
type FS struct {
	vol *fatx.Volume
	log *logger.Logger
}

// New wraps vol for serving over FUSE. A nil log discards diagnostics.
func New(vol *fatx.Volume, log *logger.Logger) *FS {
	if log == nil {
		log = logger.Discard
	}
	return &FS{vol: vol, log: log}
}

func (f *FS) Root() (fs.Node, error) {
	return &node{fs: f, path: "/"}, nil
}

// node represents a single path inside the volume. It carries no cached
// state and is re-resolved against the engine on every call, since the
// engine is the single source of truth for records and chains and promises
// no caller holds a live reference into engine-owned memory between calls.
type node struct {
	fs   *FS
	path string
}

var (
	_ fs.Node               = (*node)(nil)
	_ fs.NodeStringLookuper = (*node)(nil)
	_ fs.HandleReadDirAller = (*node)(nil)
	_ fs.HandleReader       = (*node)(nil)
	_ fs.HandleWriter       = (*node)(nil)
	_ fs.NodeCreater        = (*node)(nil)
	_ fs.NodeMkdirer        = (*node)(nil)
	_ fs.NodeRemover        = (*node)(nil)
	_ fs.NodeRenamer        = (*node)(nil)
	_ fs.NodeSetattrer      = (*node)(nil)
	_ fs.NodeFsyncer        = (*node)(nil)
)

// errnoFor maps an engine error's fatx.Kind to the POSIX errno bazil.org/fuse
// expects back from a Node/Handle method.
func errnoFor(err error) error {
	if err == nil {
		return nil
	}
	kind, ok := fatx.KindOf(err)
	if !ok {
		return fuse.Errno(syscall.EIO)
	}
	switch kind {
	case fatx.KindNotFound:
		return fuse.Errno(syscall.ENOENT)
	case fatx.KindNotDirectory:
		return fuse.Errno(syscall.ENOTDIR)
	case fatx.KindIsDirectory:
		return fuse.Errno(syscall.EISDIR)
	case fatx.KindNotEmpty:
		return fuse.Errno(syscall.ENOTEMPTY)
	case fatx.KindExists:
		return fuse.Errno(syscall.EEXIST)
	case fatx.KindNameTooLong:
		return fuse.Errno(syscall.ENAMETOOLONG)
	case fatx.KindNoSpace:
		return fuse.Errno(syscall.ENOSPC)
	case fatx.KindReadOnly:
		return fuse.Errno(syscall.EROFS)
	case fatx.KindNotFATX:
		return fuse.Errno(syscall.EINVAL)
	default: // KindCorrupt, KindIO
		return fuse.Errno(syscall.EIO)
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	info, err := n.fs.vol.Stat(n.path)
	if err != nil {
		return errnoFor(err)
	}
	applyAttr(info, a)
	return nil
}

func applyAttr(info fatx.FileInfo, a *fuse.Attr) {
	a.Size = info.Size
	a.Mtime = info.Modified
	a.Ctime = info.Created
	a.Atime = info.Accessed
	if info.IsDir {
		a.Mode = os.ModeDir | 0755
	} else {
		a.Mode = 0644
	}
}

func (n *node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	child := joinPath(n.path, name)
	if _, err := n.fs.vol.Stat(child); err != nil {
		return nil, errnoFor(err)
	}
	return &node{fs: n.fs, path: child}, nil
}

func (n *node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	var out []fuse.Dirent
	err := n.fs.vol.List(n.path, func(info fatx.FileInfo) {
		typ := fuse.DT_File
		if info.IsDir {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Name: info.Name, Type: typ})
	})
	if err != nil {
		return nil, errnoFor(err)
	}
	return out, nil
}

func (n *node) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	rd, err := n.fs.vol.Read(n.path, buf, req.Offset)
	if err != nil {
		return errnoFor(err)
	}
	resp.Data = buf[:rd]
	return nil
}

func (n *node) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	wr, err := n.fs.vol.Write(n.path, req.Data, req.Offset)
	if err != nil {
		return errnoFor(err)
	}
	resp.Size = wr
	return nil
}

func (n *node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	child := joinPath(n.path, req.Name)
	if _, err := n.fs.vol.Create(child, false); err != nil {
		return nil, nil, errnoFor(err)
	}
	cn := &node{fs: n.fs, path: child}
	return cn, cn, nil
}

func (n *node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	child := joinPath(n.path, req.Name)
	if _, err := n.fs.vol.Mkdir(child); err != nil {
		return nil, errnoFor(err)
	}
	return &node{fs: n.fs, path: child}, nil
}

func (n *node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	child := joinPath(n.path, req.Name)
	if req.Dir {
		return errnoFor(n.fs.vol.Rmdir(child))
	}
	return errnoFor(n.fs.vol.Unlink(child))
}

func (n *node) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	dest, ok := newDir.(*node)
	if !ok {
		return fuse.Errno(syscall.EIO)
	}
	oldPath := joinPath(n.path, req.OldName)
	newPath := joinPath(dest.path, req.NewName)
	return errnoFor(n.fs.vol.Rename(oldPath, newPath))
}

func (n *node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if err := n.fs.vol.Truncate(n.path, req.Size); err != nil {
			return errnoFor(err)
		}
	}
	return n.Attr(ctx, &resp.Attr)
}

func (n *node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return errnoFor(n.fs.vol.Sync())
}
