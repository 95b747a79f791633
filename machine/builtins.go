package machine

import "strings"

// builtinNames lists every native function a bytecode image may reference
// through PUSH_BUILTIN, in the registry order given in SPEC_FULL §6.
var builtinNames = []string{
	"$$builtin-print",
	"$$builtin-print-literal",
	"$$builtin-println",
	"$$builtin-string-compare",
	"$$builtin-string-concat",
	"$$builtin-string-equal",
	"$$builtin-string-length",
	"$$builtin-string-substring",
	"$$builtin-fatal-error",
}

func registerBuiltins(m *Machine) map[string]*Value {
	reg := make(map[string]*Value, len(builtinNames))
	fns := map[string]NativeFunc{
		"$$builtin-print":            builtinPrint,
		"$$builtin-print-literal":    builtinPrintLiteral,
		"$$builtin-println":          builtinPrintln,
		"$$builtin-string-compare":   curryStage(builtinStringCompare2),
		"$$builtin-string-concat":    curryStage(builtinStringConcat2),
		"$$builtin-string-equal":     curryStage(builtinStringEqual2),
		"$$builtin-string-length":    builtinStringLength,
		"$$builtin-string-substring": curryStage(curryStage(builtinStringSubstring3)),
		"$$builtin-fatal-error":      builtinFatalError,
	}
	for _, name := range builtinNames {
		// Builtins are process-lifetime constants, like True/False/Unit:
		// built directly rather than through Memory.alloc so they never
		// enter the all-objects list and are never a candidate for sweep.
		reg[name] = &Value{kind: KindBuiltin, colour: Black, builtinName: name, builtinFn: fns[name]}
	}
	return reg
}

// curryStage builds a generic partial-application step: it peeks (never
// pops) the just-supplied argument and the current receiver, allocates a
// BuiltinClosure linking them to next, then collapses the two operands
// away once the closure (already pushed by the allocator) is safely
// rooted. See SPEC_FULL §4.6 and op.c's _stringCompareN family.
func curryStage(next NativeFunc) NativeFunc {
	return func(m *Machine) error {
		s := m.mem.stack
		arg, err := s.peek(0)
		if err != nil {
			return err
		}
		receiver, err := s.peek(1)
		if err != nil {
			return err
		}
		m.mem.NewBuiltinClosure(receiver, arg, next)
		return s.collapse(2)
	}
}

// chainArg returns the argument accumulated n curry stages back, counting
// the most recently applied argument as 0.
func chainArg(bc *Value, n int) (*Value, error) {
	cur := bc
	for i := 0; i < n; i++ {
		prev, _, _, err := cur.AsBuiltinClosure()
		if err != nil {
			return nil, err
		}
		cur = prev
	}
	_, arg, _, err := cur.AsBuiltinClosure()
	return arg, err
}

func builtinPrint(m *Machine) error {
	s := m.mem.stack
	v, err := s.pop()
	if err != nil {
		return err
	}
	if _, err := s.pop(); err != nil { // receiver
		return err
	}
	raw, err := formatValue(m, v, StyleRaw)
	if err != nil {
		return err
	}
	m.out.WriteString(raw)
	s.push(Unit)
	return nil
}

func builtinPrintLiteral(m *Machine) error {
	s := m.mem.stack
	v, err := s.pop()
	if err != nil {
		return err
	}
	if _, err := s.pop(); err != nil {
		return err
	}
	lit, err := formatValue(m, v, StyleLiteral)
	if err != nil {
		return err
	}
	m.out.WriteString(lit)
	s.push(Unit)
	return nil
}

func builtinPrintln(m *Machine) error {
	s := m.mem.stack
	if _, err := s.pop(); err != nil { // argument, unused
		return err
	}
	if _, err := s.pop(); err != nil { // receiver
		return err
	}
	m.out.WriteString("\n")
	s.push(Unit)
	return nil
}

func builtinStringLength(m *Machine) error {
	s := m.mem.stack
	v, err := s.pop()
	if err != nil {
		return err
	}
	if _, err := s.pop(); err != nil { // receiver
		return err
	}
	str, err := v.AsString()
	if err != nil {
		return err
	}
	m.mem.NewInt(int32(len(str)))
	return nil
}

func builtinStringCompare2(m *Machine) error {
	s := m.mem.stack
	second, err := s.pop()
	if err != nil {
		return err
	}
	receiver, err := s.pop()
	if err != nil {
		return err
	}
	first, err := chainArg(receiver, 0)
	if err != nil {
		return err
	}
	a, err := first.AsString()
	if err != nil {
		return err
	}
	b, err := second.AsString()
	if err != nil {
		return err
	}
	m.mem.NewInt(int32(strings.Compare(a, b)))
	return nil
}

func builtinStringConcat2(m *Machine) error {
	s := m.mem.stack
	second, err := s.pop()
	if err != nil {
		return err
	}
	receiver, err := s.pop()
	if err != nil {
		return err
	}
	first, err := chainArg(receiver, 0)
	if err != nil {
		return err
	}
	a, err := first.AsString()
	if err != nil {
		return err
	}
	b, err := second.AsString()
	if err != nil {
		return err
	}
	m.mem.NewString(a + b)
	return nil
}

func builtinStringEqual2(m *Machine) error {
	s := m.mem.stack
	second, err := s.pop()
	if err != nil {
		return err
	}
	receiver, err := s.pop()
	if err != nil {
		return err
	}
	first, err := chainArg(receiver, 0)
	if err != nil {
		return err
	}
	a, err := first.AsString()
	if err != nil {
		return err
	}
	b, err := second.AsString()
	if err != nil {
		return err
	}
	s.push(boolValue(a == b))
	return nil
}

// builtinStringSubstring3 runs after two curry stages have accumulated
// the string and start; the stack top is now end, having been supplied
// last. Clamping follows SPEC_FULL §6: negative bounds clamp to
// zero, start at or past length yields "", end at or before start yields
// "", end beyond length clamps to length.
func builtinStringSubstring3(m *Machine) error {
	s := m.mem.stack
	endVal, err := s.pop() // end was supplied last
	if err != nil {
		return err
	}
	receiver, err := s.pop() // BuiltinClosure carrying (string, start)
	if err != nil {
		return err
	}
	startVal, err := chainArg(receiver, 0)
	if err != nil {
		return err
	}
	strVal, err := chainArg(receiver, 1)
	if err != nil {
		return err
	}
	text, err := strVal.AsString()
	if err != nil {
		return err
	}
	start, err := startVal.AsInt()
	if err != nil {
		return err
	}
	end, err := endVal.AsInt()
	if err != nil {
		return err
	}

	length := int32(len(text))
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if end > length {
		end = length
	}
	var result string
	if start >= length || end <= start {
		result = ""
	} else {
		result = text[start:end]
	}
	m.mem.NewString(result)
	return nil
}

func builtinFatalError(m *Machine) error {
	s := m.mem.stack
	v, err := s.pop()
	if err != nil {
		return err
	}
	if _, err := s.pop(); err != nil {
		return err
	}
	raw, ferr := formatValue(m, v, StyleRaw)
	if ferr == nil {
		m.out.WriteString(raw)
		m.out.WriteString("\n")
	}
	return m.fail(Aborted, PushBuiltin, errAbortedByProgram)
}
