package machine

import "encoding/binary"

// asmBuilder is a minimal, test-only image builder. It exists because the
// real compiler/emitter is an external collaborator (SPEC_FULL §1) with no
// assembler retrieved alongside this package; tests build images directly
// against the byte layout in SPEC_FULL §4.1 instead.
type asmBuilder struct {
	buf     []byte
	labels  map[string]uint32
	patches []asmPatch
}

type asmPatch struct {
	offset uint32
	label  string
}

func newAsmBuilder() *asmBuilder {
	return &asmBuilder{labels: make(map[string]uint32)}
}

func (a *asmBuilder) here() uint32 { return uint32(len(a.buf)) }

func (a *asmBuilder) mark(name string) *asmBuilder {
	a.labels[name] = a.here()
	return a
}

func (a *asmBuilder) op(o Opcode) *asmBuilder {
	a.buf = append(a.buf, byte(o))
	return a
}

func (a *asmBuilder) i32(v int32) *asmBuilder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	a.buf = append(a.buf, b[:]...)
	return a
}

// ref reserves a 4 byte slot patched to label's final address once build
// resolves every label.
func (a *asmBuilder) ref(label string) *asmBuilder {
	a.patches = append(a.patches, asmPatch{offset: a.here(), label: label})
	return a.i32(0)
}

func (a *asmBuilder) str(s string) *asmBuilder {
	a.buf = append(a.buf, []byte(s)...)
	a.buf = append(a.buf, 0)
	return a
}

// build resolves every ref against mark, prepends the 4 byte entry IP
// header, and returns a ready-to-run image.
func (a *asmBuilder) build(entryLabel string) []byte {
	for _, p := range a.patches {
		target, ok := a.labels[p.label]
		if !ok {
			panic("asmBuilder: unresolved label " + p.label)
		}
		binary.LittleEndian.PutUint32(a.buf[p.offset:p.offset+4], target+4)
	}
	entry, ok := a.labels[entryLabel]
	if !ok {
		panic("asmBuilder: unresolved entry label " + entryLabel)
	}
	out := make([]byte, 4, 4+len(a.buf))
	binary.LittleEndian.PutUint32(out[0:4], entry+4)
	out = append(out, a.buf...)
	return out
}
