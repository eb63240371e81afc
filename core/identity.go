package core

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Identity names the source of every event an agent emits.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IDGenerator produces unique identifiers for identities and events.
type IDGenerator interface {
	NewID() (string, error)
}

// Supported generator names for IdentityConfig.Generator
const (
	GeneratorULID = "ulid"
	GeneratorUUID = "uuid"
)

// ULIDGenerator generates lexicographically sortable ULIDs.
// IDs generated within the same millisecond are monotonically increasing.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULIDGenerator creates a ULID generator reading entropy from crypto/rand
func NewULIDGenerator() *ULIDGenerator {
	return NewULIDGeneratorWithEntropy(rand.Reader)
}

// NewULIDGeneratorWithEntropy creates a ULID generator over the given entropy source
func NewULIDGeneratorWithEntropy(r io.Reader) *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(r, 0),
		now:     time.Now,
	}
}

// NewID returns a new ULID string
func (g *ULIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("ulid: %w", err)
	}
	return id.String(), nil
}

// UUIDGenerator generates random (v4) UUIDs
type UUIDGenerator struct{}

// NewID returns a new UUID string
func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("uuid: %w", err)
	}
	return id.String(), nil
}

// NewIDGenerator returns the generator registered under name
func NewIDGenerator(name string) (IDGenerator, error) {
	switch name {
	case "", GeneratorULID:
		return NewULIDGenerator(), nil
	case GeneratorUUID:
		return UUIDGenerator{}, nil
	default:
		return nil, &FrameworkError{
			Op:      "NewIDGenerator",
			Kind:    "identity",
			Message: fmt.Sprintf("unknown id generator: %s", name),
			Err:     ErrInvalidConfiguration,
		}
	}
}

// NewIdentity builds an identity for name with a freshly generated id
func NewIdentity(gen IDGenerator, name string) (Identity, error) {
	if name == "" {
		return Identity{}, &FrameworkError{
			Op:      "NewIdentity",
			Kind:    "identity",
			Message: "identity name is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if gen == nil {
		gen = NewULIDGenerator()
	}

	id, err := gen.NewID()
	if err != nil {
		return Identity{}, &FrameworkError{
			Op:   "NewIdentity",
			Kind: "identity",
			ID:   name,
			Err:  fmt.Errorf("%w: %v", ErrIDGeneration, err),
		}
	}
	if id == "" {
		return Identity{}, &FrameworkError{
			Op:   "NewIdentity",
			Kind: "identity",
			ID:   name,
			Err:  fmt.Errorf("%w: empty id", ErrIDGeneration),
		}
	}

	return Identity{ID: id, Name: name}, nil
}
