package gitobj

import "errors"

// Sentinel errors returned by the value, store, reference, and checkout
// layers. Callers should compare with errors.Is, since internal helpers
// wrap these with positional context via fmt.Errorf("...: %w", ...).
var (
	// ErrMalformedHeader is returned when the "<kind> <size>\0" framing of
	// an inflated object cannot be parsed: missing delimiter, unknown kind
	// name, or a non-integer size.
	ErrMalformedHeader = errors.New("gitobj: malformed object header")

	// ErrSizeMismatch is returned when the declared size in the object
	// header does not match the length of the remaining payload.
	ErrSizeMismatch = errors.New("gitobj: size mismatch between header and body")

	// ErrMalformedBody is returned when a kind-specific codec fails to
	// parse the object body.
	ErrMalformedBody = errors.New("gitobj: malformed object body")

	// ErrMalformedCompression is returned when the deflate stream backing
	// a loose or packed object cannot be inflated.
	ErrMalformedCompression = errors.New("gitobj: malformed compressed data")

	// ErrNotFound is returned by Store.ReadExn when a hash does not resolve
	// to anything in the store.
	ErrNotFound = errors.New("gitobj: object not found")

	// ErrAmbiguous is returned by short-hash resolution when a prefix
	// matches more than one stored object.
	ErrAmbiguous = errors.New("gitobj: ambiguous short hash")

	// ErrSchemaViolation is returned during checkout when a tree entry's
	// mode does not match the kind of object its hash resolves to (a Dir
	// entry pointing at a non-tree, or vice versa).
	ErrSchemaViolation = errors.New("gitobj: tree entry kind mismatch")

	// ErrConfigError is returned at Store construction when an option is
	// out of its valid range (e.g. a compression level outside [0,9]).
	ErrConfigError = errors.New("gitobj: invalid configuration")

	// ErrMalformedReference is returned when chasing a symbolic reference
	// exceeds the bounded depth, signalling a cycle.
	ErrMalformedReference = errors.New("gitobj: symbolic reference cycle or malformed target")
)
