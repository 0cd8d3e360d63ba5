//go:build unix

package transport

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenDirect maps the given windows of a physical memory device such as
// /dev/mem or a UIO node. Window bases are rounded down to the page size.
func OpenDirect(path string, windows ...Window) (*Direct, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: could not open %q: %w", path, err)
	}
	defer f.Close()

	d := &Direct{}
	var regions [][]byte

	unmapAll := func() error {
		var errs []error
		for _, r := range regions {
			errs = append(errs, unix.Munmap(r))
		}

		return errors.Join(errs...)
	}

	pageSize := uint32(os.Getpagesize())
	for _, w := range windows {
		start := w.Base &^ (pageSize - 1)
		length := int(w.Base - start + w.Size)

		region, err := unix.Mmap(int(f.Fd()), int64(start), length,
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			_ = unmapAll()
			return nil, fmt.Errorf(
				"transport: could not map 0x%08x+0x%x: %w", w.Base, w.Size, err)
		}

		regions = append(regions, region)
		d.mappings = append(d.mappings, mapping{
			Window: w,
			mem:    region[w.Base-start:],
		})
	}

	d.closer = unmapAll

	return d, nil
}
