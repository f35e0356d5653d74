package paillier

import (
	"errors"
	"fmt"
)

// Validation failures. None of them are transient: retrying the same call
// with the same arguments fails the same way.
var (
	ErrInsecureParameters  = errors.New("insecure parameters")
	ErrKeyGeneration       = errors.New("key generation failed")
	ErrPlaintextOutOfRange = errors.New("plaintext out of range")
	ErrInvalidNonce        = errors.New("nonce is not a unit mod N")
	ErrInvalidCiphertext   = errors.New("invalid ciphertext")
	ErrDecryptionMismatch  = errors.New("ciphertext does not match the secret key")
	ErrMalformedEncoding   = errors.New("malformed ciphertext encoding")
	ErrKeyMismatch         = errors.New("ciphertext belongs to another key")
	ErrEmptyInput          = errors.New("empty input")
)

// Error annotates a validation failure with the operation and argument at fault.
//
// Use errors.Is with one of the sentinel errors above to classify it.
type Error struct {
	// Op is the failing operation, e.g. "encrypt".
	Op string
	// Arg names the offending argument, empty if the failure is not tied to one.
	Arg string
	// Err is the underlying error
	Err error
}

func (e Error) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("paillier: %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("paillier: %s: argument %s: %s", e.Op, e.Arg, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

func newError(op, arg string, err error) error {
	return Error{Op: op, Arg: arg, Err: err}
}
