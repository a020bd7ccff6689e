// Package source models external datasets as pull-based record streams.
package source

import "context"

// Record is one item pulled from a source: keyed fields, one of which
// holds the text payload. Records are ephemeral; nothing retains them
// past a single pull.
type Record map[string]any

// Text returns the string payload under the given field name.
// ok is false when the field is absent or not a string.
func (r Record) Text(field string) (string, bool) {
	v, present := r[field]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	return s, isString
}

// Source is a lazy, ordered, forward-only stream of records. It is not
// restartable and need not be finite; callers pull until Next returns
// io.EOF. Abandoning a source mid-stream is allowed and requires no
// cleanup call.
type Source interface {
	// Name returns the unique identifier for this source (e.g., "stack-python").
	Name() string

	// Field returns the record field holding the text payload.
	Field() string

	// Fraction returns this source's share of the total byte budget.
	Fraction() float64

	// Next returns the next record, or io.EOF when the source is
	// exhausted. Any other error is a fetch/decode failure and is fatal
	// to the run.
	Next(ctx context.Context) (Record, error)
}
