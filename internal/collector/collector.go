// Package collector implements the bounded streaming dedup-filter-write
// pass that assembles the corpus: normalize, length-filter, fingerprint,
// dedup, write, stop at the byte quota.
package collector

import (
	"context"
	"crypto/sha1"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/corpus-cli/internal/source"
)

// Fingerprint is the SHA-1 digest of a record's canonical text, used as
// the deduplication key. Hash collisions are treated as genuine
// duplicates.
type Fingerprint [sha1.Size]byte

// SeenSet is the set of fingerprints already written in this run.
// It is owned by the orchestrator, shared across all source passes, and
// never persisted.
type SeenSet map[Fingerprint]struct{}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() SeenSet {
	return make(SeenSet)
}

// Contains reports whether fp has already been accepted.
func (s SeenSet) Contains(fp Fingerprint) bool {
	_, ok := s[fp]
	return ok
}

// Add inserts fp into the set.
func (s SeenSet) Add(fp Fingerprint) {
	s[fp] = struct{}{}
}

// Len returns the number of distinct fingerprints accepted so far.
func (s SeenSet) Len() int {
	return len(s)
}

// Normalize strips surrounding whitespace and collapses CRLF sequences
// to bare newlines. This is the form that gets written to the corpus.
func Normalize(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
}

// FingerprintOf computes the dedup key for already-normalized text:
// NFC-normalize, Unicode case fold, then SHA-1. Two records whose
// canonical forms are byte-identical always collide here; the inverse
// is not guaranteed.
func FingerprintOf(text string) Fingerprint {
	// Casers are stateful; never share one across calls.
	canonical := cases.Fold().String(norm.NFC.String(text))
	return sha1.Sum([]byte(canonical))
}

// Options bounds the length filter. Both edges are inclusive and count
// characters (runes), not bytes.
type Options struct {
	MinChars int
	MaxChars int
}

// Collect pulls records from src until the source is exhausted or the
// accumulated byte count reaches quota, writing each surviving record's
// stripped text plus a newline to w. seen is read and mutated; the sink
// and the set are both externally owned.
//
// Returns the bytes written (text plus separators) and records kept.
// Quota exhaustion and source exhaustion are indistinguishable by
// design. Records with a missing field, empty or out-of-window text, or
// an already-seen fingerprint are skipped silently; fetch and write
// failures are fatal.
func Collect(ctx context.Context, src source.Source, w io.Writer, quota int64, opts Options, seen SeenSet) (int64, int64, error) {
	var written, kept int64

	for written < quota {
		select {
		case <-ctx.Done():
			return written, kept, eris.Wrap(ctx.Err(), "collect: context cancelled")
		default:
		}

		rec, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, kept, eris.Wrapf(err, "collect: pull from %s", src.Name())
		}

		text, ok := rec.Text(src.Field())
		if !ok {
			continue
		}

		text = Normalize(text)
		if text == "" {
			continue
		}

		if n := utf8.RuneCountInString(text); n < opts.MinChars || n > opts.MaxChars {
			continue
		}

		fp := FingerprintOf(text)
		if seen.Contains(fp) {
			continue
		}
		seen.Add(fp)

		n, err := io.WriteString(w, text+"\n")
		if err != nil {
			return written, kept, eris.Wrapf(err, "collect: write from %s", src.Name())
		}
		written += int64(n)
		kept++
	}

	return written, kept, nil
}
