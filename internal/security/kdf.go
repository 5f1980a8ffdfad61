package security

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters (OWASP recommendations)
	argon2Time      = 3
	argon2Memory    = 64 * 1024 // 64 MB
	argon2Threads   = 2
	argon2KeyLength = 32
	saltLength      = 16

	// Upper bounds accepted when reading parameters back from a payload
	maxArgon2Time   = 10
	maxArgon2Memory = 256 * 1024
)

// KDFParams are the Argon2id settings used to turn a note password into an AES key.
// They travel inside every payload so defaults can change without breaking stored notes.
type KDFParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultKDFParams returns the production key derivation settings
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:    argon2Time,
		Memory:  argon2Memory,
		Threads: argon2Threads,
	}
}

const kdfHeaderSize = 4 + 4 + 1

func (p KDFParams) deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, argon2KeyLength)
}

func (p KDFParams) validate() error {
	if p.Time == 0 || p.Time > maxArgon2Time {
		return fmt.Errorf("argon2 time out of range: %d", p.Time)
	}
	if p.Memory < 8*uint32(p.Threads) || p.Memory > maxArgon2Memory {
		return fmt.Errorf("argon2 memory out of range: %d", p.Memory)
	}
	if p.Threads == 0 {
		return fmt.Errorf("argon2 threads must be positive")
	}
	return nil
}

func (p KDFParams) marshal() []byte {
	b := make([]byte, kdfHeaderSize)
	binary.BigEndian.PutUint32(b[0:4], p.Time)
	binary.BigEndian.PutUint32(b[4:8], p.Memory)
	b[8] = p.Threads
	return b
}

func unmarshalKDFParams(b []byte) (KDFParams, error) {
	if len(b) < kdfHeaderSize {
		return KDFParams{}, fmt.Errorf("kdf header too short")
	}
	p := KDFParams{
		Time:    binary.BigEndian.Uint32(b[0:4]),
		Memory:  binary.BigEndian.Uint32(b[4:8]),
		Threads: b[8],
	}
	return p, p.validate()
}
