package machine

import "encoding/binary"

// reader decodes the little-endian, NUL-terminated-string image format
// described in SPEC_FULL §4.1. It never mutates the underlying bytes, so
// the image can be a read-only mmap of the file on disk.
type reader struct {
	image []byte
}

func newReader(image []byte) *reader {
	return &reader{image: image}
}

func (r *reader) entryIP() (uint32, error) {
	return r.readUint32At(0)
}

func (r *reader) readUint32At(off uint32) (uint32, error) {
	if int(off)+4 > len(r.image) {
		return 0, errIndexOutOfRange
	}
	return binary.LittleEndian.Uint32(r.image[off : off+4]), nil
}

func (r *reader) readInt32At(off uint32) (int32, error) {
	u, err := r.readUint32At(off)
	return int32(u), err
}

func (r *reader) readByteAt(off uint32) (byte, error) {
	if int(off) >= len(r.image) {
		return 0, errIndexOutOfRange
	}
	return r.image[off], nil
}

// readStringAt returns the NUL-terminated string starting at off and the
// offset immediately after its terminator.
func (r *reader) readStringAt(off uint32) (string, uint32, error) {
	i := off
	for {
		if int(i) >= len(r.image) {
			return "", 0, errIndexOutOfRange
		}
		if r.image[i] == 0 {
			return string(r.image[off:i]), i + 1, nil
		}
		i++
	}
}

// readDataNamesAt decodes the data-name table referenced by a Data
// value's meta offset: a 4-byte count N followed by N+1 NUL-terminated
// strings (the type name, then each constructor name in order).
func (r *reader) readDataNamesAt(off uint32) (*DataNames, error) {
	n, err := r.readUint32At(off)
	if err != nil {
		return nil, err
	}
	cur := off + 4
	typeName, next, err := r.readStringAt(cur)
	if err != nil {
		return nil, err
	}
	cur = next
	ctors := make([]string, n)
	for i := uint32(0); i < n; i++ {
		name, next, err := r.readStringAt(cur)
		if err != nil {
			return nil, err
		}
		ctors[i] = name
		cur = next
	}
	return &DataNames{TypeName: typeName, Constructors: ctors}, nil
}
