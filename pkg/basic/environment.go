package basic

import (
	"sort"
	"strings"
)

// IsStringName reports whether a variable name is string typed.
func IsStringName(name string) bool {
	return strings.HasSuffix(name, "$")
}

// kindOfName returns the value kind a variable name accepts.
func kindOfName(name string) ValueKind {
	if IsStringName(name) {
		return StringKind
	}
	return NumberKind
}

// defaultValue is what an unset variable reads as.
func defaultValue(name string) Value {
	if IsStringName(name) {
		return Str("")
	}
	return Number(0)
}

// VarReader is the read-only view the expression evaluator gets.
type VarReader interface {
	Get(name string) Value
}

// Environment maps variable names to values. There is one global scope.
type Environment struct {
	vars map[string]Value
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]Value)}
}

// Get returns the value of name, or the kind default when it was never set.
func (e *Environment) Get(name string) Value {
	if v, ok := e.vars[name]; ok {
		return v
	}
	return defaultValue(name)
}

// Lookup is Get that also says whether the variable exists.
func (e *Environment) Lookup(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set assigns v to name. The value kind must match the name kind.
func (e *Environment) Set(name string, v Value) error {
	if v.Kind() != kindOfName(name) {
		return typeMismatch("CANNOT ASSIGN %s TO %s", v.Kind(), name)
	}
	e.vars[name] = v
	return nil
}

// Clear removes every variable.
func (e *Environment) Clear() {
	e.vars = make(map[string]Value)
}

// Len returns the number of assigned variables.
func (e *Environment) Len() int {
	return len(e.vars)
}

// Names returns the assigned variable names in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
