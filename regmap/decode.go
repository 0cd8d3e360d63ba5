package regmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Decode fills one of the mirror structs (DFII, PHY, ECP5PHY) from the words
// of a block read in address order.
func Decode(words []uint32, v any) error {
	size := binary.Size(v)
	if size < 0 {
		return fmt.Errorf("regmap: %T is not a fixed-size register image", v)
	}

	if len(words)*WordSize != size {
		return fmt.Errorf("regmap: %T needs %d words, got %d",
			v, size/WordSize, len(words))
	}

	buf := new(bytes.Buffer)
	for _, w := range words {
		_ = binary.Write(buf, binary.LittleEndian, w)
	}

	return binary.Read(buf, binary.LittleEndian, v)
}

// Encode flattens a mirror struct into its words in address order.
func Encode(v any) ([]uint32, error) {
	buf := new(bytes.Buffer)

	err := binary.Write(buf, binary.LittleEndian, v)
	if err != nil {
		return nil, fmt.Errorf("regmap: %w", err)
	}

	words := make([]uint32, buf.Len()/WordSize)
	err = binary.Read(buf, binary.LittleEndian, words)
	if err != nil {
		return nil, fmt.Errorf("regmap: %w", err)
	}

	return words, nil
}
