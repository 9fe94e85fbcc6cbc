package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
)

func analyze(source string, knownGlobals map[string]bool) []Diagnostic {
	tree := sqlang.Parse(source)
	return Analyze(tree, knownGlobals)
}

func TestUndeclaredVariableReported(t *testing.T) {
	diags := analyze(`local x = undeclaredThing;`, nil)
	if assert.Len(t, diags, 2) {
		assert.Equal(t, SeverityError, diags[0].Severity)
		assert.Contains(t, diags[0].Message, "undeclaredThing")
	}
}

func TestKnownGlobalIsNotUndeclared(t *testing.T) {
	diags := analyze(`local x = someGlobal;`, map[string]bool{"someGlobal": true})
	if assert.Len(t, diags, 1) {
		assert.Equal(t, "Unused variable 'x'", diags[0].Message)
	}
}

func TestBuiltinsNeverFlagged(t *testing.T) {
	diags := analyze(`print(typeof(this));`, nil)
	assert.Empty(t, diags)
}

func TestUnusedLocalReportedAsWarning(t *testing.T) {
	diags := analyze(`function f() { local unused = 1; }`, nil)
	if assert.Len(t, diags, 1) {
		assert.Equal(t, SeverityWarning, diags[0].Severity)
		assert.True(t, diags[0].Unnecessary)
	}
}

func TestUnusedParameterReportedAsHint(t *testing.T) {
	diags := analyze(`function f(unusedParam) {}`, nil)
	if assert.Len(t, diags, 1) {
		assert.Equal(t, SeverityHint, diags[0].Severity)
	}
}

func TestFileLevelDeclarationsVisibleRegardlessOfOrder(t *testing.T) {
	diags := analyze(`
function first() { return second(); }
function second() { return 1; }
`, nil)
	assert.Empty(t, diags)
}

func TestClosureReferencingOuterLocalKeepsItUsed(t *testing.T) {
	diags := analyze(`
function outer() {
    local counter = 0;
    return function() { return counter; };
}
`, nil)
	assert.Empty(t, diags)
}

func TestInheritedClassBodyCallSuppressesUndeclared(t *testing.T) {
	diags := analyze(`
actor <- inherit("scripts/entity/tactical/base", {
    function onDeath() {
        base.onDeath();
    }
});
`, nil)
	assert.Empty(t, diags)
}

func TestNewSlotAssignmentTargetIsNotAReference(t *testing.T) {
	diags := analyze(`someTable <- {};`, nil)
	assert.Empty(t, diags)
}

func TestForLoopVariableIsDeclared(t *testing.T) {
	diags := analyze(`for (local i = 0; i < 10; i += 1) { print(i); }`, nil)
	assert.Empty(t, diags)
}

func TestForeachLoopVariableIsDeclared(t *testing.T) {
	diags := analyze(`foreach (value in [1, 2, 3]) { print(value); }`, nil)
	assert.Empty(t, diags)
}

func TestCatchVariableIsDeclaredAndUnusedIsWarning(t *testing.T) {
	diags := analyze(`
try {
    doSomething();
} catch (e) {
}
`, nil)
	var messages []string
	for _, d := range diags {
		messages = append(messages, d.Message)
	}
	assert.NotContains(t, messages, "Undeclared variable 'e'")
	assert.Contains(t, messages, "Unused variable 'e'")
	for _, d := range diags {
		if d.Message == "Unused variable 'e'" {
			assert.Equal(t, SeverityWarning, d.Severity)
		}
	}
}
