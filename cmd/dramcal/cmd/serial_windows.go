package cmd

import (
	"errors"
	"io"
)

func openSerial(string, int) (io.ReadWriteCloser, error) {
	return nil, errors.New("serial bridges are not supported on windows, use tcp://")
}
