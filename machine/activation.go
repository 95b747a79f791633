package machine

// lexicalParent walks frame hops up the CLOSURE chain from act — the
// lexical environment each activation's creating closure captured — not
// act's own dynamic parent (the caller). PUSH_VAR addresses variables this
// way; STORE_VAR always writes the current activation. See SPEC_FULL §4.5.
func lexicalParent(act *Activation, frame int32) (*Activation, error) {
	cur := act
	for i := int32(0); i < frame; i++ {
		if cur.closure == nil {
			return nil, errNotActivation
		}
		closureActVal, _, err := cur.closure.AsClosure()
		if err != nil {
			return nil, err
		}
		if closureActVal == nil {
			return nil, errNotActivation
		}
		closureAct, err := closureActVal.AsActivation()
		if err != nil {
			return nil, err
		}
		cur = closureAct
	}
	return cur, nil
}

func (a *Activation) slot(i int32) (*Value, error) {
	if !a.hasState {
		return nil, errStateAbsent
	}
	if i < 0 || int(i) >= len(a.state) {
		return nil, errIndexOutOfRange
	}
	return a.state[i], nil
}

func (a *Activation) setSlot(i int32, v *Value) error {
	if !a.hasState {
		return errStateAbsent
	}
	if i < 0 || int(i) >= len(a.state) {
		return errIndexOutOfRange
	}
	a.state[i] = v
	return nil
}

func (a *Activation) enter(n int32) error {
	if a.hasState {
		return errStateAlready
	}
	a.state = make([]*Value, n)
	a.hasState = true
	return nil
}

// depth is the number of closure-chain hops from a to the root activation.
// Used only by the Raw formatter's c<ip>#<depth> rendering.
func (a *Activation) depth() int {
	n := 0
	cur := a
	for cur.closure != nil {
		closureActVal, _, err := cur.closure.AsClosure()
		if err != nil || closureActVal == nil {
			break
		}
		closureAct, err := closureActVal.AsActivation()
		if err != nil {
			break
		}
		cur = closureAct
		n++
	}
	return n
}
