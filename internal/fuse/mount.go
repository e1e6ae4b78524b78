//go:build !linux
// +build !linux

package fuse

import (
	"fmt"

	"github.com/gofatx/gofatx/internal/logger"
	"github.com/gofatx/gofatx/pkg/fatx"
)

// Mount is a stub on non-Linux platforms; bazil.org/fuse only drives the
// kernel FUSE protocol on Linux (and Darwin with an external helper this
// build doesn't depend on).
func Mount(mountpoint string, vol *fatx.Volume, log *logger.Logger) error {
	return fmt.Errorf("fatx: FUSE mount is only supported on Linux")
}
