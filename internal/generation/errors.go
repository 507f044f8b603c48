package generation

import (
	"errors"

	"github.com/HerbHall/studyforge/pkg/llm"
)

var (
	// ErrBackendUnavailable means every backend in the chain failed.
	ErrBackendUnavailable = llm.ErrAllBackendsUnavailable

	// ErrNoParsableJSON means no complete JSON value could be found in a reply.
	ErrNoParsableJSON = errors.New("no parsable JSON in model reply")

	// ErrSchemaViolation wraps the reason a single item was rejected.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrInsufficientValidItems means fewer items validated than requested.
	ErrInsufficientValidItems = errors.New("insufficient valid items")

	// ErrInvalidRequest is a caller error. It is the only error Run returns.
	ErrInvalidRequest = errors.New("invalid generation request")
)
