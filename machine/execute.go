package machine

import "io"

// Execute decodes image per SPEC_FULL §4.1, drives it to completion, and
// writes program output to out. It returns nil on a clean RET-to-root and
// a *FatalError for anything in the taxonomy of SPEC_FULL §7. Execute
// never calls os.Exit; translating a returned error into a process exit
// status is the CLI host's job (machine/exitcode.go, cmd/tlca).
func Execute(image []byte, out io.Writer, opts Options) error {
	m := newMachine(image, out, opts)

	entry, err := m.reader.entryIP()
	if err != nil {
		flushErr := m.out.Flush()
		if flushErr != nil {
			return flushErr
		}
		return fatal(ImageError, 0, 0, err)
	}
	m.ip = entry

	// NewActivation pushes the root activation onto the operand stack as
	// part of the usual allocate-then-root discipline; it is rooted by
	// SetCurrentActivation from here on, so pop it back off to start
	// execution with an empty operand stack.
	root := m.mem.NewActivation(nil, nil, 0)
	if _, err := m.mem.stack.pop(); err != nil {
		return err
	}
	m.mem.SetCurrentActivation(root)
	m.builtins = registerBuiltins(m)

	runErr := m.run()
	if flushErr := m.out.Flush(); flushErr != nil && runErr == nil {
		return flushErr
	}
	return runErr
}
