package machine

// True, False and Unit are process-lifetime singletons held as package
// variables outside any running program's heap, standing in for the
// reference machine's separate "internal" memory manager for these three
// values (SPEC_FULL §4.7). They are never attached to a Memory's
// all-objects list, so a program's GC never sweeps them.
var (
	True  = &Value{kind: KindBool, b: true, colour: Black}
	False = &Value{kind: KindBool, b: false, colour: Black}
	Unit  = &Value{kind: KindUnit, colour: Black}
)

func boolValue(b bool) *Value {
	if b {
		return True
	}
	return False
}
