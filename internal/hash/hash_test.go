package hash

import (
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_WriteAny(t *testing.T) {
	testFunc := func(vs ...interface{}) error {
		h := New("test")
		for _, v := range vs {
			if err := h.WriteAny(v); err != nil {
				return err
			}
		}
		return nil
	}

	assert.NoError(t, testFunc(new(saferith.Nat).SetUint64(35)))
	assert.NoError(t, testFunc(saferith.ModulusFromUint64(35)))
	assert.NoError(t, testFunc([]byte{1, 4, 6}))
	assert.NoError(t, testFunc(BytesWithDomain{TheDomain: "x", Bytes: []byte{1}}))

	var n *saferith.Nat
	assert.Error(t, testFunc(n))
	assert.Error(t, testFunc(42))

	assert.NoError(t, testFunc(new(saferith.Nat).SetUint64(35), []byte{1, 4, 6}))
}

func TestHash_DomainSeparation(t *testing.T) {
	h1 := New("a")
	h2 := New("b")
	require.NoError(t, h1.WriteAny([]byte{1, 2, 3}))
	require.NoError(t, h2.WriteAny([]byte{1, 2, 3}))
	assert.NotEqual(t, h1.Sum(), h2.Sum())

	// []byte and saferith.Nat with identical bytes must not collide
	h3 := New("a")
	require.NoError(t, h3.WriteAny(new(saferith.Nat).SetBytes([]byte{1, 2, 3})))
	assert.NotEqual(t, h1.Sum(), h3.Sum())
}

func TestHash_Sum(t *testing.T) {
	h := New("sum")
	require.NoError(t, h.WriteAny([]byte("data")))
	out := h.Sum()
	assert.Len(t, out, DigestLengthBytes)
	assert.Equal(t, out, h.Sum(), "Sum should not change the state")
}
