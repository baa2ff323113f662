package ingest

import "errors"

// Fatal errors abort a run.
var (
	ErrListFetch = errors.New("ingest: list fetch failed")
	ErrWrite     = errors.New("ingest: write failed")
)

// Item errors only exclude the item from the run.
var (
	ErrDetailFetch       = errors.New("ingest: detail fetch failed")
	ErrMissingIdentifier = errors.New("ingest: missing identifier")
	ErrNoData            = errors.New("ingest: no data")
)

// IsFatal reports whether err should terminate the process with a failure.
// Anything that is not an item error is fatal, including cancellation.
func IsFatal(err error) bool {
	return err != nil && !isItemError(err)
}

func isItemError(err error) bool {
	return errors.Is(err, ErrDetailFetch) ||
		errors.Is(err, ErrMissingIdentifier) ||
		errors.Is(err, ErrNoData)
}
