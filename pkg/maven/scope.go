package maven

import "fmt"

// Scope is the build phase a dependency applies to. It controls how far
// a dependency propagates transitively: compile and runtime dependencies
// are expanded into their own dependencies, test and provided are not.
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeProvided Scope = "provided"
)

// ParseScope parses a scope string. The empty string defaults to compile,
// matching Maven's behavior for dependencies declared without a scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeCompile, nil
	case ScopeCompile, ScopeRuntime, ScopeTest, ScopeProvided:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("invalid scope %q (expected compile, runtime, test, or provided)", s)
	}
}

// Transitive reports whether dependencies of this scope are expanded
// into their own dependencies during resolution.
func (s Scope) Transitive() bool {
	return s == ScopeCompile || s == ScopeRuntime
}

func (s Scope) String() string { return string(s) }
