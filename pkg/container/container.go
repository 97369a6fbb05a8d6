// Package container implements the output-container encoders of spec.md
// §6: raw identity, the bin/sav binary-load formats, and the turbo-wav/wav
// pulse-modulated audio-cassette formats, plus the plain-text listing
// writer.
package container

import "fmt"

// Raw is the identity encoder.
func Raw(bytes []byte) []byte {
	return bytes
}

// Bin prepends the 4-byte {link_lo, link_hi, len_lo, len_hi} header.
func Bin(linkAddr int, bytes []byte) []byte {
	out := make([]byte, 0, 4+len(bytes))
	out = append(out, byte(linkAddr&0xFF), byte(linkAddr>>8), byte(len(bytes)&0xFF), byte(len(bytes)>>8))
	return append(out, bytes...)
}

// Sav builds an RT-11 SAV image: 32 leading zero bytes, a 10-byte control
// block at offset 32, a 16-byte 512-byte-block bitmap at offset 240 (32
// leading + 10 control-block + 198 padding bytes), padding out to offset
// 512, then the payload (spec.md §6; the bitmap offset here follows
// `original_source/pdpy11/compiler/util.py`'s literal byte layout, which
// computes to 240, not the 230 spec.md's prose states).
func Sav(linkAddr, finalAddr int, bytes []byte) []byte {
	blockStart := linkAddr / 512
	blockEnd := (finalAddr + 511) / 512

	out := make([]byte, 512, 512+len(bytes))

	out[32] = byte(linkAddr & 0xFF)
	out[33] = byte(linkAddr >> 8)
	out[34] = byte(0o1000 & 0xFF)
	out[35] = byte(0o1000 >> 8)
	// 36..39 are the reserved zero bytes the format leaves blank.
	out[40] = byte(finalAddr & 0xFF)
	out[41] = byte(finalAddr >> 8)

	for i := 0; i < 16; i++ {
		var bits byte
		for j := 0; j < 8; j++ {
			block := (7-j) + i*8
			if blockStart <= block && block < blockEnd {
				bits |= 1 << uint(j)
			}
		}
		out[240+i] = bits
	}

	return append(out, bytes...)
}

// Listing renders sorted label listings grouped by file as the plain-text
// format spec.md §4.5/§6 describe: one "{octal-address padded to six
// digits} {label-name}" line per label, trailing newline per line.
func Listing(files map[string][]LabelLine) string {
	out := ""
	for file, lines := range files {
		out += fmt.Sprintf("; %s\n", file)
		for _, l := range lines {
			out += fmt.Sprintf("%06o %s\n", l.Address, l.Name)
		}
	}
	return out
}

// LabelLine is one listing entry.
type LabelLine struct {
	Address int
	Name    string
}
