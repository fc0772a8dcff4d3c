package report

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrUnsupportedFont is returned for font files gopdf cannot embed.
var ErrUnsupportedFont = errors.New("unsupported font format")

const (
	sfntTrueType = 0x00010000
	sfntCFF      = 0x4F54544F // "OTTO"
	sfntTTC      = 0x74746366 // "ttcf"
)

// readFont returns TrueType font data for path. gopdf only embeds single
// TrueType faces, so the first face of a collection (.ttc) is extracted
// into a standalone font. CFF-outline OpenType fonts are rejected.
func readFont(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: file too short", ErrUnsupportedFont)
	}
	switch tag := binary.BigEndian.Uint32(data); tag {
	case sfntTrueType:
		return data, nil
	case sfntTTC:
		return extractFace(data, 0)
	default:
		return nil, sfntError(tag)
	}
}

func sfntError(tag uint32) error {
	if tag == sfntCFF {
		return fmt.Errorf("%w: CFF outlines, a TrueType (glyf) font is required", ErrUnsupportedFont)
	}
	return fmt.Errorf("%w: unknown header %#08x", ErrUnsupportedFont, tag)
}

// extractFace copies face index of a TrueType collection into a standalone
// sfnt. Table offsets in a collection are relative to the file, so each
// table is moved behind the new directory and its offset rewritten.
func extractFace(ttc []byte, index int) ([]byte, error) {
	truncated := fmt.Errorf("%w: truncated font collection", ErrUnsupportedFont)

	numFonts := int(binary.BigEndian.Uint32(ttc[8:]))
	if index >= numFonts || len(ttc) < 12+4*numFonts {
		return nil, truncated
	}
	off := int(binary.BigEndian.Uint32(ttc[12+4*index:]))
	if off+12 > len(ttc) {
		return nil, truncated
	}
	if tag := binary.BigEndian.Uint32(ttc[off:]); tag != sfntTrueType {
		return nil, sfntError(tag)
	}

	numTables := int(binary.BigEndian.Uint16(ttc[off+4:]))
	dirLen := 12 + 16*numTables
	if off+dirLen > len(ttc) {
		return nil, truncated
	}
	out := make([]byte, dirLen, len(ttc)-off)
	copy(out, ttc[off:off+dirLen])

	for i := 0; i < numTables; i++ {
		rec := out[12+16*i:]
		tableOff := int(binary.BigEndian.Uint32(rec[8:]))
		tableLen := int(binary.BigEndian.Uint32(rec[12:]))
		if tableOff+tableLen > len(ttc) {
			return nil, truncated
		}
		binary.BigEndian.PutUint32(rec[8:], uint32(len(out)))
		out = append(out, ttc[tableOff:tableOff+tableLen]...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}
	return out, nil
}
