package machine

import (
	"fmt"
	"strings"
)

// Style selects how formatValue renders a value. Raw is used for debug
// traces and the Raw-style builtins; Literal quotes and escapes strings;
// Typed appends ": <type>" the way top-level RET results print.
type Style int

const (
	StyleRaw Style = iota
	StyleLiteral
	StyleTyped
)

func formatValue(m *Machine, v *Value, style Style) (string, error) {
	var b strings.Builder
	if err := writeValue(m, &b, v, style); err != nil {
		return "", err
	}
	if style == StyleTyped {
		t, err := typeName(m, v)
		if err != nil {
			return "", err
		}
		b.WriteString(": ")
		b.WriteString(t)
	}
	return b.String(), nil
}

// typeName computes the printable type of v: the algebraic type's own name
// for Data (looked up via its constructor's meta table, not the generic
// "Data" tag) and a recursive "(T1 * T2 * ...)" composition for Tuple,
// matching the original machine's append_type. Every other kind's type is
// just its Kind tag.
func typeName(m *Machine, v *Value) (string, error) {
	switch v.kind {
	case KindData:
		names, err := m.dataNamesAt(v.meta)
		if err != nil {
			return "", err
		}
		return names.TypeName, nil
	case KindTuple:
		parts := make([]string, len(v.fields))
		for i, f := range v.fields {
			t, err := typeName(m, f)
			if err != nil {
				return "", err
			}
			parts[i] = t
		}
		return "(" + strings.Join(parts, " * ") + ")", nil
	default:
		return v.kind.String(), nil
	}
}

func writeValue(m *Machine, b *strings.Builder, v *Value, style Style) error {
	switch v.kind {
	case KindInt:
		fmt.Fprintf(b, "%d", v.i)
	case KindBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindUnit:
		b.WriteString("()")
	case KindString:
		if style == StyleLiteral {
			b.WriteByte('"')
			for _, r := range v.s {
				switch r {
				case '"':
					b.WriteString(`\"`)
				case '\\':
					b.WriteString(`\\`)
				default:
					b.WriteRune(r)
				}
			}
			b.WriteByte('"')
		} else {
			b.WriteString(v.s)
		}
	case KindTuple:
		b.WriteByte('(')
		for i, f := range v.fields {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeValue(m, b, f, style); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	case KindData:
		names, err := m.dataNamesAt(v.meta)
		if err != nil {
			return err
		}
		if int(v.ctorID) < 0 || int(v.ctorID) >= len(names.Constructors) {
			return errIndexOutOfRange
		}
		b.WriteString(names.Constructors[v.ctorID])
		for _, f := range v.fields {
			b.WriteByte(' ')
			nested := f.kind == KindData && len(f.fields) > 0
			if nested {
				b.WriteByte('(')
			}
			if err := writeValue(m, b, f, style); err != nil {
				return err
			}
			if nested {
				b.WriteByte(')')
			}
		}
	case KindClosure:
		if style == StyleRaw {
			depth := 0
			if v.activ != nil {
				act, err := v.activ.AsActivation()
				if err == nil {
					depth = act.depth() + 1
				}
			}
			fmt.Fprintf(b, "c%d#%d", v.ip, depth)
		} else {
			b.WriteString("function")
		}
	case KindActivation:
		a := v.activation
		b.WriteByte('<')
		if a.parent != nil {
			if err := writeValue(m, b, a.parent, StyleRaw); err != nil {
				return err
			}
		} else {
			b.WriteString("root")
		}
		b.WriteString(", ")
		if a.closure != nil {
			if err := writeValue(m, b, a.closure, StyleRaw); err != nil {
				return err
			}
		} else {
			b.WriteString("root")
		}
		fmt.Fprintf(b, ", %d, [", a.returnIP)
		for i, s := range a.state {
			if i > 0 {
				b.WriteString(", ")
			}
			if s == nil {
				b.WriteString("?")
				continue
			}
			if err := writeValue(m, b, s, StyleRaw); err != nil {
				return err
			}
		}
		b.WriteString("]>")
	case KindBuiltin:
		if style == StyleRaw {
			b.WriteString(v.builtinName)
		} else {
			b.WriteString("function")
		}
	case KindBuiltinClosure:
		if style == StyleRaw {
			b.WriteString("builtin-closure")
		} else {
			b.WriteString("function")
		}
	default:
		return errUnknownOpcode
	}
	return nil
}
