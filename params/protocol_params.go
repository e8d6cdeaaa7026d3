package params

const (
	VerifyingKeySize = 32 // Size of an ed25519 verifying key, also the sender field.
	ProcessorIDSize  = 32 // Size of a processor (node) identifier.
	SeedSize         = 32 // Size of the seed a key pair is derived from.
	SignatureSize    = 64 // Size of a detached ed25519 signature.
	ProofSize        = 16 // Size of a proof-of-work stamp.

	// DefaultStamps is the fee budget used by tooling when none is configured.
	DefaultStamps uint64 = 100000

	// MaxKwargs bounds the number of kwargs entries accepted from the wire.
	MaxKwargs = 1024
)
