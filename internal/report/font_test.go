package report

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFont_TrueType(t *testing.T) {
	want, err := os.ReadFile(cjkFont)
	require.NoError(t, err)

	got, err := readFont(cjkFont)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadFont_CollectionFirstFace(t *testing.T) {
	data, err := readFont(cjkTTC)
	require.NoError(t, err)
	assert.Equal(t, uint32(sfntTrueType), binary.BigEndian.Uint32(data))

	// every table of the extracted face lies inside the new file
	numTables := int(binary.BigEndian.Uint16(data[4:]))
	require.Positive(t, numTables)
	for i := 0; i < numTables; i++ {
		rec := data[12+16*i:]
		off := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		assert.Zero(t, off%4, "table %q not aligned", rec[:4])
		assert.LessOrEqual(t, int(off+length), len(data), "table %q out of bounds", rec[:4])
	}

	// the first face is the CJK one, so its tables match cjk.ttf byte for byte
	single, err := os.ReadFile(cjkFont)
	require.NoError(t, err)
	assert.Equal(t, single, data)
}

func TestReadFont_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"short", []byte("OTTO"), "too short"},
		{"cff", append([]byte("OTTO"), make([]byte, 16)...), "CFF outlines"},
		{"unknown", append([]byte("wOFF"), make([]byte, 16)...), "unknown header"},
		{"truncated collection", append([]byte("ttcf\x00\x01\x00\x00\x00\x00\x00\x05"), make([]byte, 4)...), "truncated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "font")
			require.NoError(t, os.WriteFile(path, tt.data, 0o600))

			_, err := readFont(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedFont)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExtractFace_BadOffsets(t *testing.T) {
	ttc, err := os.ReadFile(cjkTTC)
	require.NoError(t, err)

	t.Run("face index out of range", func(t *testing.T) {
		_, err := extractFace(ttc, 2)
		assert.ErrorIs(t, err, ErrUnsupportedFont)
	})

	t.Run("face offset past end", func(t *testing.T) {
		bad := append([]byte(nil), ttc...)
		binary.BigEndian.PutUint32(bad[12:], uint32(len(bad)))
		_, err := extractFace(bad, 0)
		assert.ErrorIs(t, err, ErrUnsupportedFont)
	})

	t.Run("table past end", func(t *testing.T) {
		bad := append([]byte(nil), ttc...)
		face := int(binary.BigEndian.Uint32(bad[12:]))
		binary.BigEndian.PutUint32(bad[face+12+8:], uint32(len(bad)))
		_, err := extractFace(bad, 0)
		assert.ErrorIs(t, err, ErrUnsupportedFont)
	})

	t.Run("second face", func(t *testing.T) {
		data, err := extractFace(ttc, 1)
		require.NoError(t, err)
		latin, err := os.ReadFile(latinFont)
		require.NoError(t, err)
		assert.Equal(t, latin, data)
	})
}
