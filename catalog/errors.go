package catalog

import "errors"

var (
	// ErrInvalidEntry indicates an entry without attribute or suffix.
	ErrInvalidEntry = errors.New("invalid catalog entry")

	// ErrDuplicateAttr indicates two entries sharing one attribute name.
	ErrDuplicateAttr = errors.New("duplicate catalog attribute")

	// ErrInvalidKind indicates an unknown channel kind.
	ErrInvalidKind = errors.New("invalid channel kind")

	// ErrUnknownAttr indicates a lookup of an attribute the catalog does not define.
	ErrUnknownAttr = errors.New("unknown catalog attribute")

	// ErrNilFactory indicates that Bind was called without a channel factory.
	ErrNilFactory = errors.New("channel factory is nil")
)
