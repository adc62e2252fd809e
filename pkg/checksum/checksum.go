// Package checksum seals fixed-size records with a trailing CRC32 so a reader can tell a
// record it wrote from a torn or foreign one.
package checksum

import (
	"encoding/binary"
	"hash/crc32"
)

// TrailerSize is the number of bytes Seal reserves at the end of a record.
const TrailerSize = 4

type CRC32IEEE struct {
	table *crc32.Table
}

func NewCRC32IEEE() *CRC32IEEE {
	return &CRC32IEEE{table: crc32.MakeTable(crc32.IEEE)}
}

func (c *CRC32IEEE) Calculate(data []byte) uint32 {
	return crc32.Checksum(data, c.table)
}

// Seal writes the checksum of record[:len-4] into its last four bytes.
// Records shorter than the trailer are left untouched.
func (c *CRC32IEEE) Seal(record []byte) {
	if len(record) <= TrailerSize {
		return
	}
	payload := len(record) - TrailerSize
	binary.LittleEndian.PutUint32(record[payload:], c.Calculate(record[:payload]))
}

// Verify reports whether a record sealed with Seal still matches its trailer.
func (c *CRC32IEEE) Verify(record []byte) bool {
	if len(record) <= TrailerSize {
		return false
	}
	payload := len(record) - TrailerSize
	return binary.LittleEndian.Uint32(record[payload:]) == c.Calculate(record[:payload])
}
