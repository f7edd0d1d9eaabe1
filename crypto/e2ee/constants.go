package e2ee

const (
	// Generator is the fixed DH generator shared by host and guest.
	Generator = 5
	// DefaultModulusBits is the compiled-in DH modulus length. Both peers must agree on it.
	DefaultModulusBits = 1024

	// KDFSalt and KDFRounds seed the key derivation. They are part of the wire contract:
	// peers that disagree derive different keys and see garbage.
	KDFSalt   = "SafeChat"
	KDFRounds = 5

	// KeySize is the AES-256 key length; IVSize is one AES block.
	KeySize = 32
	IVSize  = 16
)
