package fetcher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// recordBuf is the channel depth for streamed dump records: deep enough
// to keep the decoder ahead of a slow consumer without holding a
// meaningful slice of a multi-gigabyte dump in memory.
const recordBuf = 64

// DecodeJSONArray streams the elements of a JSON array dump. Some
// corpora ship as one top-level array ([{...},{...}]) rather than
// line-delimited records; decoding element by element keeps memory flat
// no matter how large the dump is. An empty reader counts as an empty
// dump. Both channels close when the dump is drained or decoding fails.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	recCh := make(chan T, recordBuf)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		dec := json.NewDecoder(r)

		if err := expectDelim(dec, '['); err != nil {
			if err != io.EOF {
				errCh <- err
			}
			return
		}

		for dec.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: decode cancelled")
				return
			}

			var rec T
			if err := dec.Decode(&rec); err != nil {
				errCh <- eris.Wrap(err, "json: decode dump record")
				return
			}

			select {
			case recCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: decode cancelled")
				return
			}
		}

		// The closing bracket must be present; a dump cut off
		// mid-transfer should fail the pass, not end it quietly.
		if _, err := dec.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: truncated dump")
		}
	}()

	return recCh, errCh
}

// expectDelim consumes the next token and requires it to be the given
// delimiter. io.EOF passes through untouched so callers can treat an
// empty reader as an empty dump.
func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return eris.Wrap(err, "json: read token")
	}
	d, ok := tok.(json.Delim)
	if !ok || d != want {
		return eris.Errorf("json: expected %q, got %v", want.String(), tok)
	}
	return nil
}

// DecodeJSONObject decodes one JSON document in full. This is the shape
// of a datasets-server rows page, which is page-bounded and small,
// unlike the dumps DecodeJSONArray exists for.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}
