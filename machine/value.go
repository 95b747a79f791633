package machine

// Colour is the mark bit used by the tracing collector. It alternates
// between two values across passes so sweep never needs a separate unmark
// phase: anything not carrying the manager's current colour after a mark
// pass is unreached and gets swept.
type Colour byte

const (
	White Colour = 0
	Black Colour = 1
)

func (c Colour) flip() Colour {
	if c == White {
		return Black
	}
	return White
}

// Kind discriminates the ten value variants a heap slot can hold.
type Kind byte

const (
	KindInt Kind = iota
	KindBool
	KindUnit
	KindString
	KindTuple
	KindData
	KindClosure
	KindActivation
	KindBuiltin
	KindBuiltinClosure
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindUnit:
		return "Unit"
	case KindString:
		return "String"
	case KindTuple:
		return "Tuple"
	case KindData:
		return "Data"
	case KindClosure:
		return "Closure"
	case KindActivation:
		return "Activation"
	case KindBuiltin:
		return "Builtin"
	case KindBuiltinClosure:
		return "BuiltinClosure"
	default:
		return "?"
	}
}

// NativeFunc is a builtin's implementation. It receives the machine so it
// can pop its arguments/receiver off the operand stack and push its
// result, following the same discipline every allocating instruction
// follows (see Memory.alloc).
type NativeFunc func(m *Machine) error

// DataNames holds an algebraic data type's constructor name tables, read
// once from the image and cached so formatting doesn't re-parse the
// image's NUL-terminated name table on every use.
type DataNames struct {
	TypeName     string
	Constructors []string
}

// Value is a single heap-allocated tagged record. Colour and Kind are
// distinct fields rather than packed into one word (see SPEC_FULL §9):
// the extra byte buys clarity over the reference C's bit-packed union.
type Value struct {
	kind   Kind
	colour Colour
	next   *Value // all-objects list link, owned by the memory manager

	i int32
	b bool
	s string

	fields []*Value // Tuple fields, or Data fields

	meta   uint32 // Data: offset of the data-name table in the image
	ctorID int32  // Data: constructor id, indexes DataNames.Constructors

	ip    uint32 // Closure: entry IP
	activ *Value // Closure: captured lexical activation, a *Value of KindActivation

	// Activation payload. Present only when kind == KindActivation.
	activation *Activation

	// Builtin payload.
	builtinName string
	builtinFn   NativeFunc

	// BuiltinClosure payload: a left-branching curry chain.
	bcPrev *Value
	bcArg  *Value
	bcFn   NativeFunc
}

// Activation is a runtime call frame: its dynamic caller (parent), the
// closure that created it (anchoring its lexical environment), the IP to
// resume at on RET, and its local variable slots (state). State is
// allocated lazily by ENTER; before that it is nil and any PUSH_VAR/
// STORE_VAR against it is a StateAbsence fault.
type Activation struct {
	parent     *Value // *Value wrapping a KindActivation, or nil at the root
	closure    *Value // *Value wrapping a KindClosure, or nil at the root
	returnIP   uint32
	state      []*Value
	hasState   bool
}

func (v *Value) Kind() Kind { return v.kind }

func (v *Value) IsInt() bool  { return v.kind == KindInt }
func (v *Value) IsBool() bool { return v.kind == KindBool }

func (v *Value) AsInt() (int32, error) {
	if v.kind != KindInt {
		return 0, errNotInt
	}
	return v.i, nil
}

func (v *Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, errNotBool
	}
	return v.b, nil
}

func (v *Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", errNotString
	}
	return v.s, nil
}

func (v *Value) AsTuple() ([]*Value, error) {
	if v.kind != KindTuple {
		return nil, errNotTuple
	}
	return v.fields, nil
}

func (v *Value) AsData() (uint32, int32, []*Value, error) {
	if v.kind != KindData {
		return 0, 0, nil, errNotData
	}
	return v.meta, v.ctorID, v.fields, nil
}

func (v *Value) AsActivation() (*Activation, error) {
	if v.kind != KindActivation {
		return nil, errNotActivation
	}
	return v.activation, nil
}

// AsClosure returns the closure's captured lexical activation (itself a
// *Value of KindActivation, or nil if the closure was built without one)
// and its entry IP.
func (v *Value) AsClosure() (*Value, uint32, error) {
	if v.kind != KindClosure {
		return nil, 0, errNotClosure
	}
	return v.activ, v.ip, nil
}

// AsBuiltinClosure returns the pieces of a partially applied builtin: the
// previous stage's value (either the original Builtin or an earlier
// BuiltinClosure), the argument it accumulated, and the function that
// advances the curry chain.
func (v *Value) AsBuiltinClosure() (*Value, *Value, NativeFunc, error) {
	if v.kind != KindBuiltinClosure {
		return nil, nil, nil, errNotCallable
	}
	return v.bcPrev, v.bcArg, v.bcFn, nil
}

func (v *Value) AsBuiltin() (string, NativeFunc, error) {
	if v.kind != KindBuiltin {
		return "", nil, errNotCallable
	}
	return v.builtinName, v.builtinFn, nil
}

// callableKind reports whether v can appear as the callee in SWAP_CALL.
func (v *Value) callableKind() bool {
	switch v.kind {
	case KindClosure, KindBuiltin, KindBuiltinClosure:
		return true
	default:
		return false
	}
}
