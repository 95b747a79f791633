package machine

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderRoundTripsIntsAndStrings(t *testing.T) {
	var img []byte
	img = append(img, 0, 0, 0, 0) // unused entry header for this test
	intOff := uint32(len(img))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], 0xCAFEBABE)
	img = append(img, b[:]...)
	strOff := uint32(len(img))
	img = append(img, []byte("hello\x00")...)

	r := newReader(img)
	u, err := r.readUint32At(intOff)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), u)

	s, next, err := r.readStringAt(strOff)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, uint32(len(img)), next)
}

func TestReaderDataNamesTable(t *testing.T) {
	var img []byte
	off := uint32(len(img))
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], 2)
	img = append(img, count[:]...)
	img = append(img, []byte("Shape\x00Circle\x00Square\x00")...)

	r := newReader(img)
	names, err := r.readDataNamesAt(off)
	require.NoError(t, err)
	assert.Equal(t, "Shape", names.TypeName)
	assert.Equal(t, []string{"Circle", "Square"}, names.Constructors)
}

func TestReaderOutOfRangeIsBoundsViolation(t *testing.T) {
	r := newReader([]byte{1, 2})
	_, err := r.readUint32At(10)
	assert.ErrorIs(t, err, errIndexOutOfRange)
}
