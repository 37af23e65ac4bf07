package diagram

import "errors"

var (
	// ErrPromptRequired indicates an empty or whitespace-only origin text.
	ErrPromptRequired = errors.New("prompt required")
	// ErrKindRequired indicates a missing diagram kind.
	ErrKindRequired = errors.New("diagram kind required")
	// ErrNoUsableRows indicates a dataset where no row had a numeric Y value.
	ErrNoUsableRows = errors.New("no usable data rows")
	// ErrInsufficientText indicates a document whose extracted text is too
	// short to generate from (likely a scanned-image PDF).
	ErrInsufficientText = errors.New("could not extract sufficient text")
)
