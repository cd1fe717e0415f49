package hashstr

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/wippyai/propbridge/errors"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the hashstr package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the hashstr package's logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// HString is the runtime value of a hashed string.
type HString struct {
	Text string
	Hash uint64
}

func (h HString) String() string { return h.Text }

// Hash32 returns the narrow form carried by 4-byte properties.
func (h HString) Hash32() uint32 { return uint32(h.Hash) }

// IsEmpty reports whether h is the empty hashed string.
func (h HString) IsEmpty() bool { return h.Hash == 0 }

// Hash returns the stable hash of s.
func Hash(s string) uint64 {
	if s == "" {
		return 0
	}
	sum := blake3.Sum256([]byte(s))
	h := binary.LittleEndian.Uint64(sum[:8])
	if h == 0 {
		// zero is reserved for the empty string
		h = 1
	}
	return h
}

// Table interns strings and resolves hashes back to text. Safe for
// concurrent use.
type Table struct {
	byHash   map[uint64]string
	byHash32 map[uint32]string
	mu       sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byHash:   make(map[uint64]string, 256),
		byHash32: make(map[uint32]string, 256),
	}
}

// Intern registers s and returns its hashed form.
func (t *Table) Intern(s string) HString {
	h := Hash(s)
	if s == "" {
		return HString{}
	}

	t.mu.RLock()
	existing, ok := t.byHash[h]
	t.mu.RUnlock()
	if ok && existing == s {
		return HString{Text: s, Hash: h}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byHash[h]; ok {
		if existing != s {
			Logger().Warn("hash collision",
				zap.String("existing", existing),
				zap.String("text", s),
				zap.Uint64("hash", h))
		}
		return HString{Text: existing, Hash: h}
	}
	t.byHash[h] = s
	if prev, ok := t.byHash32[uint32(h)]; ok && prev != s {
		Logger().Warn("narrow hash collision",
			zap.String("existing", prev),
			zap.String("text", s),
			zap.Uint32("hash", uint32(h)))
	} else {
		t.byHash32[uint32(h)] = s
	}
	return HString{Text: s, Hash: h}
}

// ToHashedString interns s and returns the stored text and its hash.
func (t *Table) ToHashedString(s string) (string, uint64) {
	hs := t.Intern(s)
	return hs.Text, hs.Hash
}

// ResolveHash returns the text interned under hash. Values that fit in 32
// bits are also looked up as narrow hashes.
func (t *Table) ResolveHash(hash uint64) (string, error) {
	if hash == 0 {
		return "", nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.byHash[hash]; ok {
		return s, nil
	}
	if hash <= math.MaxUint32 {
		if s, ok := t.byHash32[uint32(hash)]; ok {
			return s, nil
		}
	}
	return "", errors.UnresolvableHash(errors.PhaseDecode, nil, hash)
}

// Resolve returns the HString for hash.
func (t *Table) Resolve(hash uint64) (HString, error) {
	s, err := t.ResolveHash(hash)
	if err != nil {
		return HString{}, err
	}
	return HString{Text: s, Hash: Hash(s)}, nil
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byHash)
}
