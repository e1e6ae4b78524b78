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
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/gofatx/gofatx/internal/logger"
	"github.com/gofatx/gofatx/internal/mountutil"
	"github.com/gofatx/gofatx/pkg/fatx"
)

// Mount serves vol over FUSE at mountpoint until a termination signal is
// received and the unmount that follows it succeeds. An unmount made from
// outside (e.g. fusermount -u) stops serving but does not make Mount
// return; it keeps waiting for a signal. It creates mountpoint if missing
// and removes it again on a clean exit, retrying the unmount on each
// further signal.
func Mount(mountpoint string, vol *fatx.Volume, log_ *logger.Logger) error {
	created, err := mountutil.Prepare(mountpoint)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	opts := []fuse.MountOption{
		fuse.FSName("fatx"),
		fuse.Subtype("gofatx"),
	}
	if vol.ReadOnly() {
		opts = append(opts, fuse.ReadOnly())
	}

	c, err := fuse.Mount(mountpoint, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	fatxFS := New(vol, log_)

	go func() {
		srv := fusefs.New(c, nil)
		if err := srv.Serve(fatxFS); err != nil {
			log.Fatalf("fatx: fuse serve error: %v", err)
		}
	}()

	return waitForUmount(mountpoint)
}

func waitForUmount(mountpoint string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	log.Println("waiting for termination signal...")

	const maxUnmountRetries = 3

	unmountAttempts := 0
	for sig := range sigc {
		log.Printf("signal received: %v.", sig)

		if unmountAttempts >= maxUnmountRetries {
			log.Fatalf("maximum unmount retries (%d) exceeded, still unable to unmount %s; exiting forcefully",
				maxUnmountRetries, mountpoint)
		}

		log.Printf("attempting unmount of %s (attempt %d/%d)...", mountpoint, unmountAttempts+1, maxUnmountRetries)
		err := fuse.Unmount(mountpoint)
		if err == nil {
			log.Println("unmounted successfully, exiting.")
			return nil
		}

		unmountAttempts++
		log.Printf("unmount failed: %v. remaining retries: %d. waiting for another signal to retry...", err, maxUnmountRetries-unmountAttempts)
	}
	return nil
}
