package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"time"
)

const (
	// TxnPrefix starts every transaction identifier.
	TxnPrefix = "TXN"

	// txnLayout is the compact, second-precision timestamp embedded after the prefix.
	txnLayout = "20060102150405"

	txnSuffixLen  = 6
	txnAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	txnRejectFrom = 256 - (256 % len(txnAlphabet))
)

var txnPattern = regexp.MustCompile(`^TXN[0-9]{14}[A-Z0-9]{6}$`)

// IsTransactionID reports whether s has the shape of a transaction identifier.
func IsTransactionID(s string) bool {
	return txnPattern.MatchString(s)
}

// TxnGenerator mints human-readable transaction identifiers of the form
// TXN<YYYYMMDDHHMMSS><6 random [A-Z0-9]>.
//
// The timestamp prefix keeps identifiers roughly sortable. The random suffix
// makes same-second collisions unlikely but is not a uniqueness guarantee;
// the payment store's unique constraint is.
type TxnGenerator struct {
	now     func() time.Time
	entropy io.Reader
}

// TxnOption configures a TxnGenerator.
type TxnOption func(*TxnGenerator)

// WithTxnClock overrides the clock used for the timestamp component.
func WithTxnClock(now func() time.Time) TxnOption {
	return func(g *TxnGenerator) { g.now = now }
}

// WithTxnEntropy overrides the random source used for the suffix.
func WithTxnEntropy(r io.Reader) TxnOption {
	return func(g *TxnGenerator) { g.entropy = r }
}

// NewTxnGenerator returns a generator backed by the system clock and crypto/rand.
func NewTxnGenerator(opts ...TxnOption) *TxnGenerator {
	g := &TxnGenerator{
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a new transaction identifier.
func (g *TxnGenerator) Next() (string, error) {
	suffix, err := g.suffix()
	if err != nil {
		return "", err
	}
	return TxnPrefix + g.now().UTC().Format(txnLayout) + suffix, nil
}

// suffix draws txnSuffixLen characters uniformly from txnAlphabet.
// Bytes at or above txnRejectFrom are discarded so no character is favored.
func (g *TxnGenerator) suffix() (string, error) {
	out := make([]byte, 0, txnSuffixLen)
	buf := make([]byte, txnSuffixLen*2)

	for len(out) < txnSuffixLen {
		if _, err := io.ReadFull(g.entropy, buf); err != nil {
			return "", fmt.Errorf("id: read transaction entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= txnRejectFrom {
				continue
			}
			out = append(out, txnAlphabet[int(b)%len(txnAlphabet)])
			if len(out) == txnSuffixLen {
				break
			}
		}
	}

	return string(out), nil
}
