package test

import (
	"errors"
	"io"

	"golang.org/x/crypto/sha3"
)

// Reader returns an endless deterministic stream of bytes derived from seed.
//
// Feeding it to samplers makes prime and nonce draws reproducible, which is what
// fixed test vectors need. It must never be used outside of tests.
func Reader(seed string) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte("hecore test reader"))
	_, _ = h.Write([]byte(seed))
	return h
}

// ErrReaderExhausted is returned by readers built with FailingReader once their budget is spent.
var ErrReaderExhausted = errors.New("test: reader exhausted")

type failingReader struct {
	r      io.Reader
	budget int
}

// FailingReader returns a reader yielding budget bytes from r, then failing with ErrReaderExhausted.
func FailingReader(r io.Reader, budget int) io.Reader {
	return &failingReader{r: r, budget: budget}
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.budget <= 0 {
		return 0, ErrReaderExhausted
	}
	if len(p) > f.budget {
		p = p[:f.budget]
	}
	n, err := f.r.Read(p)
	f.budget -= n
	return n, err
}
