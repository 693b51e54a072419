// Package crypto protects secrets that have to be kept on disk when no OS
// keychain is available.
//
// Scheme:
//
//	salt = GenerateSalt()                 (once per file)
//	key  = DeriveKey(passphrase, salt)    (Argon2id, never persisted)
//	blob = Seal(plaintext, key)           (AES-256-GCM, nonce ‖ ciphertext)
//	text = Open(blob, key)
package crypto

// Sealer derives keys from passphrases and seals data with them.
type Sealer interface {
	// GenerateSalt returns 16 random bytes. The salt is not a secret and is
	// stored next to the sealed data.
	GenerateSalt() ([]byte, error)

	// DeriveKey derives a 256-bit key from passphrase and salt via Argon2id.
	DeriveKey(passphrase string, salt []byte) []byte

	// Seal encrypts plaintext with key. The result is nonce ‖ ciphertext.
	Seal(plaintext, key []byte) ([]byte, error)

	// Open reverses Seal. A wrong key fails authentication and returns an
	// error.
	Open(blob, key []byte) ([]byte, error)
}
