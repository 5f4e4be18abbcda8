package log

import (
	"strings"
)

// hexBytesPerRow is the number of bytes printed per dump row.
const hexBytesPerRow = 16

const hexDigits = "0123456789ABCDEF"

// HexDump formats buf as rows of 16 upper-case, space-separated hex bytes.
// An empty buffer yields no rows.
func HexDump(buf []byte) []string {
	rows := make([]string, 0, (len(buf)+hexBytesPerRow-1)/hexBytesPerRow)

	var sb strings.Builder
	for i, b := range buf {
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0F])
		sb.WriteByte(' ')
		if (i+1)%hexBytesPerRow == 0 {
			rows = append(rows, sb.String())
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		rows = append(rows, sb.String())
	}
	return rows
}
