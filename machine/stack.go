package machine

// Stack is the operand stack: a growable vector of value references.
// It is one of the two GC roots (SPEC_FULL §4.3) while the machine runs,
// so every live slot below sp must always hold a reachable value.
type Stack struct {
	values []*Value
}

func newStack() *Stack {
	return &Stack{values: make([]*Value, 0, 256)}
}

func (s *Stack) len() int { return len(s.values) }

func (s *Stack) at(i int) *Value { return s.values[i] }

func (s *Stack) push(v *Value) {
	s.values = append(s.values, v)
}

func (s *Stack) pop() (*Value, error) {
	n := len(s.values)
	if n == 0 {
		return nil, errStackEmpty
	}
	v := s.values[n-1]
	s.values = s.values[:n-1]
	return v, nil
}

// popN drops the top n slots and returns them in stack order (bottom of
// the popped group first), matching the field order PUSH_TUPLE/PUSH_DATA
// expect.
func (s *Stack) popN(n int) ([]*Value, error) {
	if n == 0 {
		return nil, nil
	}
	if len(s.values) < n {
		return nil, errStackUnderflow
	}
	start := len(s.values) - n
	out := make([]*Value, n)
	copy(out, s.values[start:])
	s.values = s.values[:start]
	return out, nil
}

// peek returns the value offset slots from the top (0 is the top).
func (s *Stack) peek(offset int) (*Value, error) {
	idx := len(s.values) - 1 - offset
	if idx < 0 {
		return nil, errStackUnderflow
	}
	return s.values[idx], nil
}

// set overwrites the value offset slots from the top.
func (s *Stack) set(offset int, v *Value) error {
	idx := len(s.values) - 1 - offset
	if idx < 0 {
		return errStackUnderflow
	}
	s.values[idx] = v
	return nil
}

// collapse pops the top value (the result of an allocation just pushed by
// Memory.alloc), discards the n slots beneath it, then pushes the result
// back — leaving it where the first of those n operands used to sit. This
// is the standard shape for every instruction that builds an aggregate
// from peeked (not popped) operands: PUSH_TUPLE, PUSH_DATA, and each stage
// of the builtin-currying chain.
func (s *Stack) collapse(n int) error {
	result, err := s.pop()
	if err != nil {
		return err
	}
	if _, err := s.popN(n); err != nil {
		return err
	}
	s.push(result)
	return nil
}

// dropAt removes exactly one slot at the given offset from the top,
// shifting slots above it down by one. Used to drop the callee slot that
// sits beneath the argument in SWAP_CALL's Closure branch.
func (s *Stack) dropAt(offset int) error {
	idx := len(s.values) - 1 - offset
	if idx < 0 {
		return errStackUnderflow
	}
	s.values = append(s.values[:idx], s.values[idx+1:]...)
	return nil
}
