package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	// ErrHashMalformed is returned when an encoded hash does not parse as a
	// PHC argon2id string.
	ErrHashMalformed = errors.New("malformed password hash")
	// ErrAlgorithmMismatch is returned when the encoded hash names a different
	// algorithm or argon2 version.
	ErrAlgorithmMismatch = errors.New("unsupported hash algorithm")
)

// Config carries the argon2id cost parameters. Raising a parameter after
// deployment is safe: existing hashes keep verifying and NeedsRehash reports
// them for opportunistic upgrade on the next successful login.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns interactive-login cost parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords with argon2id in PHC string format.
// A Hasher is immutable after construction and safe for concurrent use.
type Hasher struct {
	cfg Config
}

// NewHasher validates the cost parameters and returns a hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return nil, errors.New("password time cost must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash derives an argon2id digest over the raw password bytes and encodes it
// as a PHC string. No Unicode normalization is applied.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("salt generation: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, h.cfg.Time, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.cfg.Memory,
		h.cfg.Time,
		h.cfg.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(digest),
	), nil
}

// Verify recomputes the digest with the parameters embedded in encodedHash
// and compares in constant time. A mismatch returns (false, nil); errors are
// reserved for unparseable hashes.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(computed, p.hash) == 1, nil
}

// NeedsRehash reports whether the stored hash was produced with weaker
// parameters than the hasher's current configuration.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	if h.cfg.Memory > p.memory || h.cfg.Time > p.time || h.cfg.Parallelism > p.parallelism {
		return true, nil
	}
	if h.cfg.KeyLength != uint32(len(p.hash)) {
		return true, nil
	}
	return false, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encodedHash string) (*phc, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrHashMalformed
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmMismatch, parts[1])
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, fmt.Errorf("%w: missing version", ErrHashMalformed)
	}
	v, err := strconv.Atoi(version)
	if err != nil {
		return nil, fmt.Errorf("%w: bad version", ErrHashMalformed)
	}
	if v != argon2.Version {
		return nil, fmt.Errorf("%w: argon2 version %d", ErrAlgorithmMismatch, v)
	}

	var p phc
	if err := parseCostParams(parts[3], &p); err != nil {
		return nil, err
	}

	if p.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrHashMalformed)
	}
	if uint32(len(p.salt)) < minSaltLength {
		return nil, fmt.Errorf("%w: short salt", ErrHashMalformed)
	}
	if p.hash, err = base64.StdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: bad digest encoding", ErrHashMalformed)
	}
	if len(p.hash) == 0 {
		return nil, fmt.Errorf("%w: empty digest", ErrHashMalformed)
	}
	return &p, nil
}

func parseCostParams(part string, p *phc) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return fmt.Errorf("%w: want m,t,p parameters", ErrHashMalformed)
	}

	var haveM, haveT, haveP bool
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: bad parameter entry", ErrHashMalformed)
		}
		switch key {
		case "m":
			v, err := strconv.ParseUint(val, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return fmt.Errorf("%w: memory parameter", ErrHashMalformed)
			}
			p.memory, haveM = uint32(v), true
		case "t":
			v, err := strconv.ParseUint(val, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return fmt.Errorf("%w: time parameter", ErrHashMalformed)
			}
			p.time, haveT = uint32(v), true
		case "p":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return fmt.Errorf("%w: parallelism parameter", ErrHashMalformed)
			}
			p.parallelism, haveP = uint8(v), true
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrHashMalformed, key)
		}
	}
	if !haveM || !haveT || !haveP {
		return fmt.Errorf("%w: missing cost parameter", ErrHashMalformed)
	}
	return nil
}
