package machine

import "fmt"

// run drives the fetch-decode-execute loop until RET unwinds past the
// root activation or a fault occurs. This is the single dispatch loop
// serving both plain execution and (when m.debug is set) tracing — the
// teacher's execInstructions(singleStep bool) shape, collapsed to one
// mode flag checked once per instruction rather than two code paths.
func (m *Machine) run() error {
	for {
		if m.debug {
			m.traceInstruction()
		}
		done, err := m.step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step executes exactly one instruction and reports whether it was the
// terminal RET (root activation unwound).
func (m *Machine) step() (bool, error) {
	op, err := m.fetchOpcode()
	if err != nil {
		return false, err
	}

	switch op {
	case PushTrue:
		m.mem.stack.push(True)
	case PushFalse:
		m.mem.stack.push(False)
	case PushUnit:
		m.mem.stack.push(Unit)
	case PushInt:
		i, err := m.fetchInt()
		if err != nil {
			return false, m.fail(ImageError, op, err)
		}
		m.mem.NewInt(i)
	case PushString:
		s, err := m.fetchString()
		if err != nil {
			return false, m.fail(ImageError, op, err)
		}
		m.mem.NewString(s)
	case PushVar:
		return false, m.execPushVar(op)
	case PushClosure:
		label, err := m.fetchInt()
		if err != nil {
			return false, m.fail(ImageError, op, err)
		}
		current := m.mem.CurrentActivation()
		m.mem.NewClosure(current, uint32(label))
	case PushBuiltin:
		return false, m.execPushBuiltin(op)
	case PushTuple:
		return false, m.execPushTuple(op)
	case PushTupleItem:
		return false, m.execPushTupleItem(op)
	case PushData:
		return false, m.execPushData(op)
	case PushDataItem:
		return false, m.execPushDataItem(op)
	case Dup:
		v, err := m.mem.stack.peek(0)
		if err != nil {
			return false, m.fail(StackUnderflow, op, err)
		}
		m.mem.stack.push(v)
	case Discard:
		if _, err := m.mem.stack.pop(); err != nil {
			return false, m.fail(StackUnderflow, op, err)
		}
	case Swap:
		a, err := m.mem.stack.pop()
		if err != nil {
			return false, m.fail(StackUnderflow, op, err)
		}
		b, err := m.mem.stack.pop()
		if err != nil {
			return false, m.fail(StackUnderflow, op, err)
		}
		m.mem.stack.push(a)
		m.mem.stack.push(b)
	case Add, Sub, Mul, Div, Eq:
		return false, m.execArith(op)
	case Jmp:
		label, err := m.fetchInt()
		if err != nil {
			return false, m.fail(ImageError, op, err)
		}
		m.ip = uint32(label)
	case JmpTrue, JmpFalse:
		return false, m.execCondJump(op)
	case JmpData:
		return false, m.execJumpData(op)
	case SwapCall:
		return false, m.execSwapCall(op)
	case Enter:
		n, err := m.fetchInt()
		if err != nil {
			return false, m.fail(ImageError, op, err)
		}
		act, err := m.currentActivationStruct()
		if err != nil {
			return false, m.fail(StateAbsence, op, err)
		}
		if err := act.enter(n); err != nil {
			return false, m.fail(StateAbsence, op, err)
		}
	case StoreVar:
		return false, m.execStoreVar(op)
	case Ret:
		return m.execRet(op)
	default:
		return false, m.fail(ImageError, op, errUnknownOpcode)
	}
	return false, nil
}

func (m *Machine) fetchOpcode() (Opcode, error) {
	b, err := m.reader.readByteAt(m.ip)
	if err != nil {
		return 0, fatal(ImageError, m.ip, 0, err)
	}
	m.ip++
	return Opcode(b), nil
}

func (m *Machine) fetchInt() (int32, error) {
	v, err := m.reader.readInt32At(m.ip)
	if err != nil {
		return 0, err
	}
	m.ip += 4
	return v, nil
}

func (m *Machine) fetchString() (string, error) {
	s, next, err := m.reader.readStringAt(m.ip)
	if err != nil {
		return "", err
	}
	m.ip = next
	return s, nil
}

func (m *Machine) currentActivationStruct() (*Activation, error) {
	cur := m.mem.CurrentActivation()
	if cur == nil {
		return nil, errNotActivation
	}
	return cur.AsActivation()
}

func (m *Machine) execPushVar(op Opcode) error {
	frame, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	slot, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	act, err := m.currentActivationStruct()
	if err != nil {
		return m.fail(StateAbsence, op, err)
	}
	target, err := lexicalParent(act, frame)
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	v, err := target.slot(slot)
	if err != nil {
		if err == errStateAbsent {
			return m.fail(StateAbsence, op, err)
		}
		return m.fail(BoundsViolation, op, err)
	}
	m.mem.stack.push(v)
	return nil
}

func (m *Machine) execPushBuiltin(op Opcode) error {
	name, err := m.fetchString()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	v, ok := m.builtins[name]
	if !ok {
		return m.fail(ImageError, op, errUnknownBuiltin)
	}
	m.mem.stack.push(v)
	return nil
}

func (m *Machine) execPushTuple(op Opcode) error {
	n, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	fields := make([]*Value, n)
	for i := int32(0); i < n; i++ {
		v, err := m.mem.stack.peek(int(n - 1 - i))
		if err != nil {
			return m.fail(StackUnderflow, op, err)
		}
		fields[i] = v
	}
	m.mem.NewTuple(fields)
	if err := m.mem.stack.collapse(int(n) + 1); err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	return nil
}

func (m *Machine) execPushTupleItem(op Opcode) error {
	i, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	v, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	fields, err := v.AsTuple()
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	if i < 0 || int(i) >= len(fields) {
		return m.fail(BoundsViolation, op, errIndexOutOfRange)
	}
	m.mem.stack.push(fields[i])
	return nil
}

func (m *Machine) execPushData(op Opcode) error {
	meta, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	id, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	n, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	fields := make([]*Value, n)
	for i := int32(0); i < n; i++ {
		v, err := m.mem.stack.peek(int(n - 1 - i))
		if err != nil {
			return m.fail(StackUnderflow, op, err)
		}
		fields[i] = v
	}
	m.mem.NewData(uint32(meta), id, fields)
	if err := m.mem.stack.collapse(int(n) + 1); err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	return nil
}

func (m *Machine) execPushDataItem(op Opcode) error {
	i, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	v, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	_, _, fields, err := v.AsData()
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	if i < 0 || int(i) >= len(fields) {
		return m.fail(BoundsViolation, op, errIndexOutOfRange)
	}
	m.mem.stack.push(fields[i])
	return nil
}

func (m *Machine) execArith(op Opcode) error {
	b, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	a, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	x, err := a.AsInt()
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	y, err := b.AsInt()
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	switch op {
	case Add:
		m.mem.NewInt(x + y)
	case Sub:
		m.mem.NewInt(x - y)
	case Mul:
		m.mem.NewInt(x * y)
	case Div:
		if y == 0 {
			// no dedicated category for arithmetic domain errors; closest
			// fit in the taxonomy is a type-level constraint violation
			return m.fail(TypeMismatch, op, errDivByZero)
		}
		m.mem.NewInt(x / y)
	case Eq:
		m.mem.stack.push(boolValue(x == y))
	}
	return nil
}

func (m *Machine) execCondJump(op Opcode) error {
	label, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	v, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	cond, err := v.AsBool()
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	if (op == JmpTrue && cond) || (op == JmpFalse && !cond) {
		m.ip = uint32(label)
	}
	return nil
}

func (m *Machine) execJumpData(op Opcode) error {
	v, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	_, id, _, err := v.AsData()
	if err != nil {
		return m.fail(TypeMismatch, op, err)
	}
	count, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	if id < 0 || id >= count {
		return m.fail(BoundsViolation, op, errIndexOutOfRange)
	}
	labels := make([]int32, count)
	for i := int32(0); i < count; i++ {
		l, err := m.fetchInt()
		if err != nil {
			return m.fail(ImageError, op, err)
		}
		labels[i] = l
	}
	m.ip = uint32(labels[id])
	return nil
}

// execSwapCall implements SWAP_CALL's three callee branches (SPEC_FULL
// §4.6). The stack on entry is [..., callee, argument], top at the right.
func (m *Machine) execSwapCall(op Opcode) error {
	callee, err := m.mem.stack.peek(1)
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}

	switch callee.Kind() {
	case KindClosure:
		_, entryIP, err := callee.AsClosure()
		if err != nil {
			return m.fail(TypeMismatch, op, err)
		}
		newAct := m.mem.NewActivation(m.mem.CurrentActivation(), callee, m.ip)
		// collapse: drop the newly-pushed activation value itself (it is
		// tracked via m.mem's current-activation root, not as an operand)
		// and drop the old callee slot, leaving only the argument.
		if _, err := m.mem.stack.pop(); err != nil { // the activation value just pushed
			return m.fail(StackUnderflow, op, err)
		}
		if err := m.mem.stack.dropAt(1); err != nil { // the callee slot, now one below the argument
			return m.fail(StackUnderflow, op, err)
		}
		m.mem.SetCurrentActivation(newAct)
		m.ip = entryIP
		return nil
	case KindBuiltin:
		_, fn, err := callee.AsBuiltin()
		if err != nil {
			return m.fail(TypeMismatch, op, err)
		}
		if err := fn(m); err != nil {
			return err
		}
		return nil
	case KindBuiltinClosure:
		_, _, fn, err := callee.AsBuiltinClosure()
		if err != nil {
			return m.fail(TypeMismatch, op, err)
		}
		if err := fn(m); err != nil {
			return err
		}
		return nil
	default:
		return m.fail(TypeMismatch, op, errNotCallable)
	}
}

func (m *Machine) execStoreVar(op Opcode) error {
	i, err := m.fetchInt()
	if err != nil {
		return m.fail(ImageError, op, err)
	}
	v, err := m.mem.stack.pop()
	if err != nil {
		return m.fail(StackUnderflow, op, err)
	}
	act, err := m.currentActivationStruct()
	if err != nil {
		return m.fail(StateAbsence, op, err)
	}
	if err := act.setSlot(i, v); err != nil {
		if err == errStateAbsent {
			return m.fail(StateAbsence, op, err)
		}
		return m.fail(BoundsViolation, op, err)
	}
	return nil
}

// execRet implements RET: terminate at the root activation (printing a
// non-Unit result) or unwind one frame (SPEC_FULL §4.6).
func (m *Machine) execRet(op Opcode) (bool, error) {
	act, err := m.currentActivationStruct()
	if err != nil {
		return false, m.fail(StateAbsence, op, err)
	}
	if act.parent == nil {
		result, err := m.mem.stack.pop()
		if err != nil {
			return false, m.fail(StackUnderflow, op, err)
		}
		if result.Kind() != KindUnit {
			typed, err := formatValue(m, result, StyleTyped)
			if err != nil {
				return false, m.fail(TypeMismatch, op, err)
			}
			m.out.WriteString(typed)
			m.out.WriteString("\n")
		}
		return true, nil
	}
	m.ip = act.returnIP
	m.mem.SetCurrentActivation(act.parent)
	return false, nil
}

func (m *Machine) traceInstruction() {
	op := Opcode(0)
	if b, err := m.reader.readByteAt(m.ip); err == nil {
		op = Opcode(b)
	}
	argsDesc := ""
	for i := 0; i < op.NumIntArgs(); i++ {
		if v, err := m.reader.readInt32At(m.ip + 1 + uint32(4*i)); err == nil {
			argsDesc += fmt.Sprintf(" %d", v)
		}
	}
	stackDesc := "["
	for i := 0; i < m.mem.stack.len(); i++ {
		if i > 0 {
			stackDesc += ", "
		}
		if raw, err := formatValue(m, m.mem.stack.at(i), StyleRaw); err == nil {
			stackDesc += raw
		}
	}
	stackDesc += "]"
	activDesc := "root"
	if cur := m.mem.CurrentActivation(); cur != nil {
		if raw, err := formatValue(m, cur, StyleRaw); err == nil {
			activDesc = raw
		}
	}
	fmt.Fprintf(m.out, "%04d: %s%s: %s %s\n", m.ip, op, argsDesc, stackDesc, activDesc)
}
