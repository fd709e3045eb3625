package rotini

import (
	"fmt"
	"regexp"
)

// DefinitionError reports a structurally invalid definition. It is returned
// while the program is built, before any token is looked at.
type DefinitionError struct {
	Entity   string // Program, Command, Argument, Flag, Operation, ConfigurationFile
	Name     string
	Property string
	Message  string
}

func (e *DefinitionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s property %q is invalid: %s", e.Entity, e.Property, e.Message)
	}
	return fmt.Sprintf("%s %q property %q is invalid: %s", e.Entity, e.Name, e.Property, e.Message)
}

func definitionError(entity, name, property, format string, args ...any) *DefinitionError {
	return &DefinitionError{
		Entity:   entity,
		Name:     name,
		Property: property,
		Message:  fmt.Sprintf(format, args...),
	}
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

func checkName(entity, name, property, value string) error {
	if value == "" {
		return definitionError(entity, name, property, "must not be empty")
	}
	if !namePattern.MatchString(value) {
		return definitionError(entity, name, property,
			"%q must start with a letter, digit or underscore and contain only letters, digits, '_', '.' or '-'", value)
	}
	return nil
}

func checkDescription(entity, name, value string) error {
	if value == "" {
		return definitionError(entity, name, "description", "must not be empty")
	}
	return nil
}

// uniqueSet records identifiers and reports the first owner of a repeat
type uniqueSet map[string]string

func (u uniqueSet) claim(id, owner string) (string, bool) {
	if prev, taken := u[id]; taken {
		return prev, false
	}
	u[id] = owner
	return "", true
}
