package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister  Phase = "register"  // type and call registration
	PhaseEncode    Phase = "encode"    // runtime value to bytes
	PhaseDecode    Phase = "decode"    // bytes to runtime value
	PhaseContainer Phase = "container" // array/dict operations
	PhaseCompare   Phase = "compare"   // comparator resolution and invocation
	PhaseDispatch  Phase = "dispatch"  // inbound remote call dispatch
	PhaseSend      Phase = "send"      // outbound remote call
	PhaseSchema    Phase = "schema"    // declaration loading
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedLength      Kind = "malformed_length"
	KindIndexOutOfRange      Kind = "index_out_of_range"
	KindKeyNotFound          Kind = "key_not_found"
	KindTrailingData         Kind = "trailing_data"
	KindUnresolvableHash     Kind = "unresolvable_hash"
	KindNoComparisonMethod   Kind = "no_comparison_method"
	KindAmbiguousComparison  Kind = "ambiguous_comparison_method"
	KindDuplicateKey         Kind = "duplicate_key"
	KindHandlerNotFound      Kind = "handler_not_found"
	KindHandlerException     Kind = "handler_exception"
	KindTypeMismatch         Kind = "type_mismatch"
	KindUnsupported          Kind = "unsupported"
	KindInvalidInput         Kind = "invalid_input"
	KindOverflow             Kind = "overflow"
	KindRegistration         Kind = "registration"
	KindNilPointer           Kind = "nil_pointer"
	KindInvalidUTF8          Kind = "invalid_utf8"
	KindReleased             Kind = "released"
	KindTransport            Kind = "transport"
	KindArgumentCountInvalid Kind = "argument_count"
)

// Sentinels for errors.Is checks that don't care about the phase.
var (
	ErrMalformedLength     = &Error{Kind: KindMalformedLength}
	ErrIndexOutOfRange     = &Error{Kind: KindIndexOutOfRange}
	ErrKeyNotFound         = &Error{Kind: KindKeyNotFound}
	ErrTrailingData        = &Error{Kind: KindTrailingData}
	ErrUnresolvableHash    = &Error{Kind: KindUnresolvableHash}
	ErrNoComparisonMethod  = &Error{Kind: KindNoComparisonMethod}
	ErrAmbiguousComparison = &Error{Kind: KindAmbiguousComparison}
	ErrDuplicateKey        = &Error{Kind: KindDuplicateKey}
	ErrHandlerNotFound     = &Error{Kind: KindHandlerNotFound}
	ErrHandlerException    = &Error{Kind: KindHandlerException}
	ErrTypeMismatch        = &Error{Kind: KindTypeMismatch}
	ErrUnsupported         = &Error{Kind: KindUnsupported}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	TypeName string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.TypeName != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.TypeName != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", declared type ")
			b.WriteString(e.TypeName)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("declared type ")
			b.WriteString(e.TypeName)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// Unwrap returns the result of calling Unwrap on err.
func Unwrap(err error) error { return errors.Unwrap(err) }

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// TypeName sets the declared type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedLength reports a declared count or length that exceeds the remaining buffer.
func MalformedLength(phase Phase, path []string, declared, remaining int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedLength,
		Path:   path,
		Detail: fmt.Sprintf("declared %d bytes, %d remaining", declared, remaining),
		Value:  declared,
	}
}

// IndexOutOfRange creates an index error for arrays
func IndexOutOfRange(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIndexOutOfRange,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of range [0,%d)", index, length),
		Value:  index,
	}
}

// KeyNotFound creates a missing dictionary key error
func KeyNotFound(phase Phase, path []string, key any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindKeyNotFound,
		Path:   path,
		Detail: fmt.Sprintf("key %v not found", key),
		Value:  key,
	}
}

// TrailingData reports bytes left over after all declared values were read.
func TrailingData(phase Phase, path []string, remaining int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrailingData,
		Path:   path,
		Detail: fmt.Sprintf("%d unconsumed bytes", remaining),
		Value:  remaining,
	}
}

// UnresolvableHash creates an error for a hash with no interned text
func UnresolvableHash(phase Phase, path []string, hash uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvableHash,
		Path:   path,
		Detail: fmt.Sprintf("hash %#x has no interned string", hash),
		Value:  hash,
	}
}

// NoComparisonMethod reports a value type without a usable compare or equals method.
func NoComparisonMethod(goType string, op string) *Error {
	return &Error{
		Phase:  PhaseCompare,
		Kind:   KindNoComparisonMethod,
		GoType: goType,
		Detail: fmt.Sprintf("no %s method", op),
	}
}

// AmbiguousComparison reports a value type with more than one matching method.
func AmbiguousComparison(goType string, op string, candidates []string) *Error {
	return &Error{
		Phase:  PhaseCompare,
		Kind:   KindAmbiguousComparison,
		GoType: goType,
		Detail: fmt.Sprintf("multiple %s methods: %s", op, strings.Join(candidates, ", ")),
		Value:  candidates,
	}
}

// DuplicateKey creates an error for a repeated key during construction
func DuplicateKey(phase Phase, path []string, key any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicateKey,
		Path:   path,
		Detail: fmt.Sprintf("duplicate key %v", key),
		Value:  key,
	}
}

// HandlerNotFound reports an inbound call without a bound handler
func HandlerNotFound(subsystem, name string, cause error) *Error {
	target := name
	if subsystem != "" {
		target = subsystem + "/" + name
	}
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindHandlerNotFound,
		Detail: fmt.Sprintf("no handler for %s", target),
		Cause:  cause,
	}
}

// HandlerException wraps a failure raised by a dispatched handler
func HandlerException(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHandlerException,
		Path:   []string{name},
		Detail: "handler failed",
		Cause:  cause,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, typeName string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		TypeName: typeName,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		TypeName: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error for a named declaration
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Path:   []string{namespace, name},
		Detail: "registration failed",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingHandler represents a single inbound call with no handler
type MissingHandler struct {
	Subsystem string // e.g., "server"
	Call      string // e.g., "Player_Move"
}

// MissingHandlersError is returned when inbound call registration leaves calls unbound
type MissingHandlersError struct {
	Handlers []MissingHandler
}

// NewMissingHandlersError creates an error from a list of "subsystem/call" strings
func NewMissingHandlersError(keys []string) *MissingHandlersError {
	result := &MissingHandlersError{
		Handlers: make([]MissingHandler, 0, len(keys)),
	}
	for _, key := range keys {
		sub, call := parseHandlerKey(key)
		result.Handlers = append(result.Handlers, MissingHandler{
			Subsystem: sub,
			Call:      call,
		})
	}
	return result
}

func parseHandlerKey(key string) (subsystem, call string) {
	sub, name, found := strings.Cut(key, "/")
	if found {
		return sub, name
	}
	return "", key
}

func (e *MissingHandlersError) Error() string {
	if len(e.Handlers) == 0 {
		return "missing handlers: no calls specified"
	}

	grouped := make(map[string][]string)
	for _, h := range e.Handlers {
		grouped[h.Subsystem] = append(grouped[h.Subsystem], h.Call)
	}
	subsystems := make([]string, 0, len(grouped))
	for sub := range grouped {
		subsystems = append(subsystems, sub)
	}
	sort.Strings(subsystems)

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d handler(s)", len(e.Handlers))
	for _, sub := range subsystems {
		name := sub
		if name == "" {
			name = "(default)"
		}
		b.WriteString("\n  ")
		b.WriteString(name)
		b.WriteString(":")
		for _, call := range grouped[sub] {
			b.WriteString("\n    - ")
			b.WriteString(call)
		}
	}
	return b.String()
}

// Is matches any MissingHandlersError
func (e *MissingHandlersError) Is(target error) bool {
	if _, ok := target.(*MissingHandlersError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == KindHandlerNotFound
	}
	return false
}
