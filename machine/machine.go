package machine

import (
	"bufio"
	"io"
)

// Machine is one execution of a single bytecode image: the fetch-decode-
// execute state (image, reader, instruction pointer), the heap (mem), and
// the output sink. A Machine is used for exactly one Execute call; it is
// not reentrant and not safe for concurrent use (SPEC_FULL §5).
type Machine struct {
	image  []byte
	reader *reader
	mem    *Memory

	ip uint32

	// out is the single buffered sink for both program output ($$builtin-
	// print family) and debug trace lines, so a --debug run interleaves
	// trace and program output in execution order rather than flushing
	// them as two separate batches (SPEC_FULL §6).
	out *bufio.Writer

	debug bool

	dataNames map[uint32]*DataNames
	builtins  map[string]*Value
}

func newMachine(image []byte, out io.Writer, opts Options) *Machine {
	return &Machine{
		image:     image,
		reader:    newReader(image),
		mem:       newMemory(opts.ForceGC),
		out:       bufio.NewWriter(out),
		debug:     opts.Debug,
		dataNames: make(map[uint32]*DataNames),
	}
}

func (m *Machine) dataNamesAt(off uint32) (*DataNames, error) {
	if dn, ok := m.dataNames[off]; ok {
		return dn, nil
	}
	dn, err := m.reader.readDataNamesAt(off)
	if err != nil {
		return nil, err
	}
	m.dataNames[off] = dn
	return dn, nil
}

func (m *Machine) fail(category Category, op Opcode, err error) error {
	return fatal(category, m.ip, op, err)
}
