package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/geocoder89/credhub/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidHash = errors.New("invalid password hash")

// Hasher turns a plaintext password into a salted digest and checks it later.
// Verify never panics: a corrupt digest simply does not match.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// bcrypt refuses input longer than this many bytes.
const bcryptMaxInput = 72

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash password hashes a plain text password with bcrypt.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", user.ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}

	return string(hash), nil
}

// bcrypt compares in constant time; malformed hashes come back as errors.
func (h *BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), bcryptInput(plain)) == nil
}

// bcryptInput passes short passwords through unchanged and folds longer ones
// into a 44 byte base64 SHA-256 digest, so every byte still counts.
func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxInput {
		return []byte(plain)
	}

	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// NewHasher picks the implementation named in config.
func NewHasher(name string, bcryptCost int) (Hasher, error) {
	switch name {
	case "bcrypt":
		return NewBcryptHasher(bcryptCost), nil
	case "", "argon2id":
		return NewArgon2idHasher(DefaultArgon2Options())
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}
