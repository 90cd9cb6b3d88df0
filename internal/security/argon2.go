package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/geocoder89/credhub/internal/domain/user"
	"golang.org/x/crypto/argon2"
)

const (
	maxArgon2Memory = 1 << 20 // 1 GiB in KiB
	maxArgon2Time   = 16
)

type Argon2Options struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

func DefaultArgon2Options() Argon2Options {
	return Argon2Options{
		Memory:  64 * 1024,
		Time:    3,
		Threads: 2,
		KeyLen:  32,
		SaltLen: 16,
	}
}

type Argon2idHasher struct {
	opts Argon2Options
}

func NewArgon2idHasher(opts Argon2Options) (*Argon2idHasher, error) {
	if opts.Time < 1 || opts.Threads < 1 {
		return nil, fmt.Errorf("argon2: time and threads must be at least 1")
	}
	if opts.Memory < 8*uint32(opts.Threads) {
		return nil, fmt.Errorf("argon2: memory must be at least 8 KiB per thread")
	}
	if opts.KeyLen < 16 || opts.SaltLen < 8 {
		return nil, fmt.Errorf("argon2: key_len >= 16 and salt_len >= 8 required")
	}
	return &Argon2idHasher{opts: opts}, nil
}

// Hash produces a PHC string:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func (h *Argon2idHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", user.ErrEmptyPassword
	}

	salt := make([]byte, h.opts.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, h.opts.Time, h.opts.Memory, h.opts.Threads, h.opts.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.opts.Memory,
		h.opts.Time,
		h.opts.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in the digest itself,
// so hashes made with older options keep verifying.
func (h *Argon2idHasher) Verify(plain, digest string) bool {
	p, err := decodeArgon2id(digest)
	if err != nil {
		return false
	}

	key := argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))

	return subtle.ConstantTimeCompare(key, p.key) == 1
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodeArgon2id(encoded string) (argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return argon2Params{}, ErrInvalidHash
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return argon2Params{}, ErrInvalidHash
	}

	var p argon2Params
	var memory, time, threads uint64
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return argon2Params{}, ErrInvalidHash
		}

		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return argon2Params{}, ErrInvalidHash
		}

		switch k {
		case "m":
			memory = n
		case "t":
			time = n
		case "p":
			threads = n
		default:
			return argon2Params{}, ErrInvalidHash
		}
	}

	// argon2.IDKey panics on zero threads and a corrupt m= could ask for
	// terabytes, so bound the parameters before calling it.
	if memory == 0 || memory > maxArgon2Memory || time == 0 || time > maxArgon2Time || threads == 0 || threads > 255 {
		return argon2Params{}, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return argon2Params{}, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argon2Params{}, ErrInvalidHash
	}

	p.memory = uint32(memory)
	p.time = uint32(time)
	p.threads = uint8(threads)
	p.salt = salt
	p.key = key

	return p, nil
}
