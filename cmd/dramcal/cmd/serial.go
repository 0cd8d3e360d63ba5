//go:build !windows

package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/term"
)

// openSerial opens the bridge UART in raw mode, 8N1.
func openSerial(port string, baud int) (io.ReadWriteCloser, error) {
	t, err := term.Open(port, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}

	return t, nil
}
