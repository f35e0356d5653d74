package paillier

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/lambdae2e/hecore/internal/params"
)

// wireEncoding is the textual alphabet of serialized ciphertexts.
// Strict mode rejects non-zero padding bits, so every ciphertext has exactly one encoding.
var wireEncoding = base64.RawURLEncoding.Strict()

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("paillier: cbor encoder: %v", err))
	}
	if decMode, err = (cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}).DecMode(); err != nil {
		panic(fmt.Sprintf("paillier: cbor decoder: %v", err))
	}
}

// wireCiphertext is the envelope of a serialized ciphertext.
type wireCiphertext struct {
	_ struct{} `cbor:",toarray"`
	// Key is the fingerprint of the public key the ciphertext belongs to.
	Key []byte
	// C is the ciphertext in big endian, padded to params.BytesCiphertext.
	C []byte
}

// Encode returns the textual wire form of ct.
//
// The output is the unpadded URL-safe base64 encoding of the deterministic CBOR
// array [fingerprint, C], where C has a fixed width depending only on the size of N.
func (pk *PublicKey) Encode(ct *Ciphertext) (string, error) {
	if err := pk.checkOperand("encode", "ct", ct); err != nil {
		return "", err
	}
	buf := make([]byte, params.BytesCiphertext(pk.BitLen()))
	ct.c.Big().FillBytes(buf)
	data, err := encMode.Marshal(wireCiphertext{
		Key: pk.fingerprint,
		C:   buf,
	})
	if err != nil {
		return "", newError("encode", "ct", err)
	}
	return wireEncoding.EncodeToString(data), nil
}

// Decode parses the wire form produced by Encode.
//
// It returns ErrMalformedEncoding for anything Encode cannot produce, and
// ErrKeyMismatch for a well formed ciphertext of another key.
func (pk *PublicKey) Decode(s string) (*Ciphertext, error) {
	data, err := wireEncoding.DecodeString(s)
	if err != nil {
		return nil, newError("decode", "s", fmt.Errorf("%w: %v", ErrMalformedEncoding, err))
	}
	// the decoder silently skips line breaks
	if wireEncoding.EncodeToString(data) != s {
		return nil, newError("decode", "s", fmt.Errorf("%w: non canonical base64", ErrMalformedEncoding))
	}

	var w wireCiphertext
	if err = decMode.Unmarshal(data, &w); err != nil {
		return nil, newError("decode", "s", fmt.Errorf("%w: %v", ErrMalformedEncoding, err))
	}
	if again, err := encMode.Marshal(w); err != nil || !bytes.Equal(again, data) {
		return nil, newError("decode", "s", fmt.Errorf("%w: non canonical envelope", ErrMalformedEncoding))
	}

	if len(w.Key) != params.FingerprintBytes {
		return nil, newError("decode", "s", fmt.Errorf("%w: fingerprint has %d bytes", ErrMalformedEncoding, len(w.Key)))
	}
	if subtle.ConstantTimeCompare(w.Key, pk.fingerprint) != 1 {
		return nil, newError("decode", "s", ErrKeyMismatch)
	}
	if want := params.BytesCiphertext(pk.BitLen()); len(w.C) != want {
		return nil, newError("decode", "s", fmt.Errorf("%w: ciphertext has %d bytes, want %d", ErrMalformedEncoding, len(w.C), want))
	}

	ct := &Ciphertext{c: new(saferith.Nat).SetBytes(w.C), pk: pk}
	if !pk.ValidateCiphertexts(ct) {
		return nil, newError("decode", "s", fmt.Errorf("%w: integer outside of ℤ_{N²}ˣ", ErrMalformedEncoding))
	}
	return ct, nil
}
