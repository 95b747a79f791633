package machine

// Memory is the heap: a singly-linked all-objects list, the manager's
// current mark colour, a size/capacity pair driving the collection
// policy, and the two GC roots (the operand stack and the current
// activation). See SPEC_FULL §4.7 for the allocation and collection
// discipline this file implements.
type Memory struct {
	root     *Value
	colour   Colour
	size     int
	capacity int

	stack      *Stack
	activation *Value // current activation, a *Value of KindActivation

	forceGC bool
}

// CurrentActivation returns the machine's current activation value.
func (m *Memory) CurrentActivation() *Value { return m.activation }

// SetCurrentActivation installs v (a *Value of KindActivation, or nil only
// during shutdown) as the machine's current activation.
func (m *Memory) SetCurrentActivation(v *Value) { m.activation = v }

const defaultCapacity = 2

func newMemory(forceGC bool) *Memory {
	return &Memory{
		colour:   White,
		capacity: defaultCapacity,
		stack:    newStack(),
		forceGC:  forceGC,
	}
}

// attach links v into the all-objects list and stamps it with the
// manager's current colour. alloc calls it only after its own collection
// has finished, so a new value is never part of a pass that is underway.
func (m *Memory) attach(v *Value) {
	v.colour = m.colour
	v.next = m.root
	m.root = v
	m.size++
}

// gc runs the collection policy: collect when full (or always, in force
// mode), then grow capacity if collection didn't make enough room.
func (m *Memory) gc() {
	if m.forceGC || m.size >= m.capacity {
		m.collect()
		if m.size >= m.capacity {
			m.capacity *= 2
		}
	}
}

func (m *Memory) collect() {
	newColour := m.colour.flip()
	m.mark(newColour)
	m.sweep(newColour)
	m.colour = newColour
}

func (m *Memory) mark(newColour Colour) {
	for i := 0; i < m.stack.len(); i++ {
		markValue(m.stack.at(i), newColour)
	}
	markValue(m.activation, newColour)
}

func markValue(v *Value, newColour Colour) {
	if v == nil || v.colour == newColour {
		return
	}
	v.colour = newColour
	switch v.kind {
	case KindTuple, KindData:
		for _, f := range v.fields {
			markValue(f, newColour)
		}
	case KindClosure:
		markValue(v.activ, newColour)
	case KindActivation:
		markActivation(v.activation, newColour)
	case KindBuiltinClosure:
		markValue(v.bcPrev, newColour)
		markValue(v.bcArg, newColour)
	}
}

func markActivation(a *Activation, newColour Colour) {
	if a == nil {
		return
	}
	if a.parent != nil {
		markValue(a.parent, newColour)
	}
	if a.closure != nil {
		markValue(a.closure, newColour)
	}
	for _, s := range a.state {
		markValue(s, newColour)
	}
}

func (m *Memory) sweep(newColour Colour) {
	var kept *Value
	size := 0
	for cur := m.root; cur != nil; {
		next := cur.next
		if cur.colour == newColour {
			cur.next = kept
			kept = cur
			size++
		}
		cur = next
	}
	m.root = kept
	m.size = size
}

// alloc finalises a freshly built value: runs the GC policy (which may
// collect using the CURRENT roots, before this value exists), attaches
// the value to the heap, then pushes it so it is itself a root for the
// remainder of the instruction. Callers must peek, never pop, the
// operands they pass into a constructor, so those operands stay
// reachable across this call's own collection (SPEC_FULL §4.7).
func (m *Memory) alloc(v *Value) *Value {
	m.gc()
	m.attach(v)
	m.stack.push(v)
	return v
}

func newIntValue(i int32) *Value     { return &Value{kind: KindInt, i: i} }
func newStringValue(s string) *Value { return &Value{kind: KindString, s: s} }

func (m *Memory) NewInt(i int32) *Value     { return m.alloc(newIntValue(i)) }
func (m *Memory) NewString(s string) *Value { return m.alloc(newStringValue(s)) }

func (m *Memory) NewTuple(fields []*Value) *Value {
	cp := make([]*Value, len(fields))
	copy(cp, fields)
	return m.alloc(&Value{kind: KindTuple, fields: cp})
}

func (m *Memory) NewData(meta uint32, ctorID int32, fields []*Value) *Value {
	cp := make([]*Value, len(fields))
	copy(cp, fields)
	return m.alloc(&Value{kind: KindData, meta: meta, ctorID: ctorID, fields: cp})
}

// NewClosure allocates a closure capturing activ, the current activation
// at the point of PUSH_CLOSURE (a *Value of KindActivation; at the top
// level this is the root activation).
func (m *Memory) NewClosure(activ *Value, ip uint32) *Value {
	return m.alloc(&Value{kind: KindClosure, activ: activ, ip: ip})
}

func (m *Memory) NewActivation(parent, closure *Value, returnIP uint32) *Value {
	a := &Activation{returnIP: returnIP}
	v := &Value{kind: KindActivation, activation: a}
	a.parent = parent
	a.closure = closure
	return m.alloc(v)
}

func (m *Memory) NewBuiltin(name string, fn NativeFunc) *Value {
	return m.alloc(&Value{kind: KindBuiltin, builtinName: name, builtinFn: fn})
}

func (m *Memory) NewBuiltinClosure(prev, arg *Value, fn NativeFunc) *Value {
	return m.alloc(&Value{kind: KindBuiltinClosure, bcPrev: prev, bcArg: arg, bcFn: fn})
}
