package domain

import "sync/atomic"

// IDIssuer hands out process-unique, strictly increasing identifiers. One
// instance is built at startup and passed to whatever needs to mint ids.
type IDIssuer struct {
	last atomic.Int64
}

// NewIDIssuer returns an issuer whose first Next call yields start (minimum 1).
func NewIDIssuer(start int) *IDIssuer {
	if start < 1 {
		start = 1
	}
	is := &IDIssuer{}
	is.last.Store(int64(start) - 1)
	return is
}

// Next returns the next identifier.
func (is *IDIssuer) Next() int {
	return int(is.last.Add(1))
}

// Peek reports the value the next call to Next will return, without consuming it.
func (is *IDIssuer) Peek() int {
	return int(is.last.Load()) + 1
}
