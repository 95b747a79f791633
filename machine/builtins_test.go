package machine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T) (*Machine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	m := newMachine([]byte{0, 0, 0, 0}, &buf, Options{})
	root := m.mem.NewActivation(nil, nil, 0)
	_, err := m.mem.stack.pop()
	require.NoError(t, err)
	m.mem.SetCurrentActivation(root)
	m.builtins = registerBuiltins(m)
	return m, &buf
}

// callBuiltin drives name through SWAP_CALL once per argument, the way
// the bytecode's curry protocol would, and returns whatever is left on
// top of the stack.
func callBuiltin(t *testing.T, m *Machine, name string, args ...*Value) *Value {
	t.Helper()
	callee, ok := m.builtins[name]
	require.True(t, ok, "unknown builtin %s", name)
	m.mem.stack.push(callee)
	for _, a := range args {
		m.mem.stack.push(a)
		require.NoError(t, m.execSwapCall(SwapCall))
	}
	result, err := m.mem.stack.peek(0)
	require.NoError(t, err)
	return result
}

func TestBuiltinStringLength(t *testing.T) {
	m, _ := newTestMachine(t)
	s := m.mem.NewString("hello")
	result := callBuiltin(t, m, "$$builtin-string-length", s)
	n, err := result.AsInt()
	require.NoError(t, err)
	assert.Equal(t, int32(5), n)
}

func TestBuiltinStringConcat(t *testing.T) {
	m, _ := newTestMachine(t)
	a := m.mem.NewString("foo")
	b := m.mem.NewString("bar")
	result := callBuiltin(t, m, "$$builtin-string-concat", a, b)
	s, err := result.AsString()
	require.NoError(t, err)
	assert.Equal(t, "foobar", s)
}

func TestBuiltinStringEqual(t *testing.T) {
	m, _ := newTestMachine(t)
	a := m.mem.NewString("x")
	b := m.mem.NewString("x")
	result := callBuiltin(t, m, "$$builtin-string-equal", a, b)
	eq, err := result.AsBool()
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestBuiltinStringCompare(t *testing.T) {
	m, _ := newTestMachine(t)
	a := m.mem.NewString("a")
	b := m.mem.NewString("b")
	result := callBuiltin(t, m, "$$builtin-string-compare", a, b)
	n, err := result.AsInt()
	require.NoError(t, err)
	assert.Negative(t, n)
}

func TestBuiltinStringSubstringClampsBounds(t *testing.T) {
	cases := []struct {
		name          string
		start, end    int32
		expectResult  string
	}{
		{"middle", 1, 3, "el"},
		{"negativeStart", -5, 3, "hel"},
		{"startPastLength", 99, 100, ""},
		{"endBeforeStart", 3, 1, ""},
		{"endPastLength", 2, 999, "llo"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, _ := newTestMachine(t)
			s := m.mem.NewString("hello")
			start := m.mem.NewInt(c.start)
			end := m.mem.NewInt(c.end)
			result := callBuiltin(t, m, "$$builtin-string-substring", s, start, end)
			got, err := result.AsString()
			require.NoError(t, err)
			assert.Equal(t, c.expectResult, got)
		})
	}
}

func TestBuiltinPrintLiteralEscapesQuotesAndBackslashes(t *testing.T) {
	m, buf := newTestMachine(t)
	s := m.mem.NewString(`say "hi"\now`)
	callBuiltin(t, m, "$$builtin-print-literal", s)
	require.NoError(t, m.out.Flush())
	assert.Equal(t, `"say \"hi\"\\now"`, buf.String())
}

func TestBuiltinFatalErrorAborts(t *testing.T) {
	m, _ := newTestMachine(t)
	s := m.mem.NewString("boom")
	callee := m.builtins["$$builtin-fatal-error"]
	m.mem.stack.push(callee)
	m.mem.stack.push(s)
	err := m.execSwapCall(SwapCall)
	require.Error(t, err)
	fe, ok := err.(*FatalError)
	require.True(t, ok)
	assert.Equal(t, Aborted, fe.Category)
}
