package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"
)

const payloadVersion byte = 1

// NoteCipher seals note text under a password-derived AES-256-GCM key.
//
// Payload layout before base64: version | kdf params | salt | nonce | ciphertext+tag.
// The version and kdf params are authenticated as additional data.
type NoteCipher struct {
	params KDFParams
}

// NewNoteCipher creates a cipher with the default Argon2id parameters
func NewNoteCipher() *NoteCipher {
	return &NoteCipher{params: DefaultKDFParams()}
}

// NewNoteCipherWithParams creates a cipher with custom key derivation settings
func NewNoteCipherWithParams(params KDFParams) (*NoteCipher, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid kdf params: %w", err)
	}
	return &NoteCipher{params: params}, nil
}

// Encrypt encrypts plaintext with password and returns base64 encoded payload
func (nc *NoteCipher) Encrypt(plaintext, password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(nc.params.deriveKey(password, salt))
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	header := append([]byte{payloadVersion}, nc.params.marshal()...)

	out := make([]byte, 0, len(header)+len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), header)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt returns the plaintext and true, or "" and false when the password is
// wrong or the payload is damaged. The two cases are indistinguishable to the caller.
func (nc *NoteCipher) Decrypt(payload, password string) (string, bool) {
	plaintext, err := nc.open(payload, password)
	if err != nil {
		return "", false
	}
	return plaintext, true
}

func (nc *NoteCipher) open(payload, password string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		nc.burn(password)
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}

	headerSize := 1 + kdfHeaderSize
	minSize := headerSize + saltLength + 12 + 16
	if len(data) < minSize || data[0] != payloadVersion {
		nc.burn(password)
		return "", fmt.Errorf("malformed payload")
	}

	params, err := unmarshalKDFParams(data[1:headerSize])
	if err != nil {
		nc.burn(password)
		return "", err
	}

	header := data[:headerSize]
	salt := data[headerSize : headerSize+saltLength]

	gcm, err := newGCM(params.deriveKey(password, salt))
	if err != nil {
		return "", err
	}

	rest := data[headerSize+saltLength:]
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, header)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("plaintext is not valid UTF-8")
	}

	return string(plaintext), nil
}

// burn spends one key derivation so malformed payloads cost the same as a wrong password
func (nc *NoteCipher) burn(password string) {
	nc.params.deriveKey(password, make([]byte, saltLength))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}
