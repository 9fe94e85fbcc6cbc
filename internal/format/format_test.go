package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleStatementIfGetsBraces(t *testing.T) {
	source := `if (x == 1)
	return 2;
`
	out := Format(source, DefaultOptions())
	assert.Contains(t, out, "if (x == 1) {")
	assert.Contains(t, out, "\treturn 2;")
	assert.Contains(t, out, "}")
}

func TestObjectLiteralMultilineLayout(t *testing.T) {
	source := `local t = { a = 1, b = 2 };`
	out := Format(source, DefaultOptions())
	assert.Contains(t, out, "a = 1,")
	assert.Contains(t, out, "b = 2")
}

func TestSwitchCaseIndentation(t *testing.T) {
	source := `switch (x) {
case 1:
	doA();
	break;
default:
	doB();
}
`
	out := Format(source, DefaultOptions())
	assert.Contains(t, out, "case 1:")
	assert.Contains(t, out, "\t\tdoA();")
}

func TestFormatIsIdempotent(t *testing.T) {
	source := `function f(a, b = 1) {
	local x = a + b;
	if (x > 0) {
		return x;
	}
	return 0;
}
`
	once := Format(source, DefaultOptions())
	twice := Format(once, DefaultOptions())
	assert.Equal(t, once, twice)
}

func TestCommentPreservedOnOwnLine(t *testing.T) {
	source := "// a note\nlocal x = 1;\n"
	out := Format(source, DefaultOptions())
	assert.Contains(t, out, "// a note")
}

func TestTernaryUsesSpacedColon(t *testing.T) {
	source := `local x = a ? 1 : 2;`
	out := Format(source, DefaultOptions())
	assert.Contains(t, out, "? 1 : 2")
}

func TestSpacesIndentStyle(t *testing.T) {
	opts := DefaultOptions()
	opts.IndentStyle = IndentSpaces
	opts.SpaceWidth = 2
	source := `if (x) {
	y();
}
`
	out := Format(source, opts)
	assert.Contains(t, out, "  y();")
}
