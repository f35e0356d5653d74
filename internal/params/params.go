package params

const (
	// BitsPaillier is the default size of a Paillier modulus N.
	BitsPaillier = 2048
	// MinBitsPaillier is the smallest modulus we agree to generate or load.
	// Anything below is factorable on commodity hardware.
	MinBitsPaillier = 512

	// PrimalityRounds is the default number of Miller-Rabin rounds applied to
	// each prime candidate. The false positive probability is at most 4⁻ʳᵒᵘⁿᵈˢ.
	PrimalityRounds = 40

	// FingerprintBytes is the length of the key fingerprint attached to
	// serialized ciphertexts.
	FingerprintBytes = 8

	// SpectrumScale is the fixed-point factor applied to real valued inputs
	// before encryption.
	SpectrumScale = 1000
)

// BytesModulus returns the number of bytes needed to hold a modulus of the given bit length.
func BytesModulus(bits int) int {
	return (bits + 7) / 8
}

// BytesCiphertext returns the fixed width of a ciphertext for a modulus of the given bit length.
// Ciphertexts live in ℤ_{N²}, so they need twice as many bytes as N.
func BytesCiphertext(bits int) int {
	return 2 * BytesModulus(bits)
}
