package cardinal

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below reports one of these through Is,
// so callers can match with errors.Is regardless of the concrete type.
var (
	// ErrConflictingDeclaration is returned when an id or owner type name is
	// redeclared with a different shape.
	ErrConflictingDeclaration = errors.New("conflicting declaration")

	// ErrDuplicateRegistration is returned when the same owner type and key are
	// registered statically twice.
	ErrDuplicateRegistration = errors.New("duplicate registration")

	// ErrDuplicateCallback is returned when a plugin tries to overwrite a
	// callback registered by another plugin.
	ErrDuplicateCallback = errors.New("duplicate callback")

	// ErrCyclicDependency is returned when the dependency graph resolved for an
	// owner type has a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrRegistryFrozen is returned when a registration is attempted after the
	// bootstrap phase ended.
	ErrRegistryFrozen = errors.New("registry frozen")

	// ErrNotInitialized is returned when the registry is used before the phase
	// the operation requires.
	ErrNotInitialized = errors.New("registry not initialized")

	// ErrComponentInitFailed is returned when a factory fails while a container
	// is being instantiated.
	ErrComponentInitFailed = errors.New("component initialization failed")

	// ErrBootstrapFailed is returned by Freeze, and by every later
	// instantiation, when bootstrap could not complete.
	ErrBootstrapFailed = errors.New("bootstrap failed")

	// ErrInvalidIdentifier is returned for malformed component ids.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrIncompatibleImpl is returned when an implementation type does not
	// satisfy the capability class of its key.
	ErrIncompatibleImpl = errors.New("incompatible implementation")

	// ErrUnknownKey is returned when a key is not present in a container.
	ErrUnknownKey = errors.New("unknown component key")
)

// ConflictingDeclarationError reports a redeclaration of a key or owner type.
type ConflictingDeclarationError struct {
	Kind      string
	Name      string
	Existing  string
	Requested string
}

func (e *ConflictingDeclarationError) Error() string {
	return fmt.Sprintf("%s %q is already declared as %s, cannot redeclare as %s", e.Kind, e.Name, e.Existing, e.Requested)
}

func (e *ConflictingDeclarationError) Is(target error) bool {
	return target == ErrConflictingDeclaration
}

// DuplicateRegistrationError reports a second static registration of a key on
// the same owner type.
type DuplicateRegistrationError struct {
	Owner string
	Key   string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("component %s is already registered on owner type %s", e.Key, e.Owner)
}

func (e *DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

// DuplicateCallbackError reports a foreign overwrite of a callback slot.
type DuplicateCallbackError struct {
	Hook     Hook
	Key      string
	Owner    string
	Plugin   string
	Existing string
}

func (e *DuplicateCallbackError) Error() string {
	return fmt.Sprintf("%s callback for %s on %s is owned by plugin %q, plugin %q cannot replace it",
		e.Hook, e.Key, e.Owner, e.Existing, e.Plugin)
}

func (e *DuplicateCallbackError) Is(target error) bool {
	return target == ErrDuplicateCallback
}

// CyclicDependencyError names the keys forming a dependency cycle.
type CyclicDependencyError struct {
	Owner string
	Path  []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("cyclic dependency on owner type %s", e.Owner)
	}
	path := append(append([]string(nil), e.Path...), e.Path[0])
	return fmt.Sprintf("cyclic dependency on owner type %s: %s", e.Owner, strings.Join(path, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// ComponentInitError wraps the failure of a single factory.
type ComponentInitError struct {
	Owner string
	Key   string
	Cause error
}

func (e *ComponentInitError) Error() string {
	return fmt.Sprintf("initialize component %s on %s: %v", e.Key, e.Owner, e.Cause)
}

func (e *ComponentInitError) Is(target error) bool {
	return target == ErrComponentInitFailed
}

func (e *ComponentInitError) Unwrap() error {
	return e.Cause
}

// IsConflictingDeclaration checks if an error is a conflicting declaration.
func IsConflictingDeclaration(err error) bool {
	return errors.Is(err, ErrConflictingDeclaration)
}

// IsDuplicateRegistration checks if an error is a duplicate registration.
func IsDuplicateRegistration(err error) bool {
	return errors.Is(err, ErrDuplicateRegistration)
}

// IsDuplicateCallback checks if an error is a duplicate callback.
func IsDuplicateCallback(err error) bool {
	return errors.Is(err, ErrDuplicateCallback)
}

// IsCyclicDependency checks if an error is a cyclic dependency.
func IsCyclicDependency(err error) bool {
	return errors.Is(err, ErrCyclicDependency)
}

// IsRegistryFrozen checks if an error is a registry frozen error.
func IsRegistryFrozen(err error) bool {
	return errors.Is(err, ErrRegistryFrozen)
}

// IsNotInitialized checks if an error is a not initialized error.
func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}

// IsComponentInitFailed checks if an error is a component init failure.
func IsComponentInitFailed(err error) bool {
	return errors.Is(err, ErrComponentInitFailed)
}

// IsBootstrapFatal reports whether err must abort bootstrap.
// Component init failures only affect a single owner instance and are not fatal.
func IsBootstrapFatal(err error) bool {
	return errors.Is(err, ErrConflictingDeclaration) ||
		errors.Is(err, ErrDuplicateRegistration) ||
		errors.Is(err, ErrDuplicateCallback) ||
		errors.Is(err, ErrCyclicDependency) ||
		errors.Is(err, ErrBootstrapFailed)
}
