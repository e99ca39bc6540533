// Package id generates and validates Weave node ids and aliases, and
// validates the closed enums used throughout the core (component A).
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

const (
	// Prefix is the fixed literal every node id starts with.
	Prefix = "wv-"
	// MinHexLen and MaxHexLen bound the random suffix length.
	MinHexLen = 4
	MaxHexLen = 6
)

var (
	idPattern    = regexp.MustCompile(`^wv-[0-9a-fA-F]{4,6}$`)
	aliasPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// Exists is a collision check; implementations look up whether an id is
// already present in storage.
type Exists func(id string) (bool, error)

// New generates a fresh, collision-free node id. Every attempt uses
// MaxHexLen characters (richest entropy), retrying on collision; ids of
// any length 4-6 are still accepted by Validate.
func New(exists Exists) (string, error) {
	const maxAttempts = 50
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := generate(MaxHexLen)
		if err != nil {
			return "", err
		}
		if exists == nil {
			return candidate, nil
		}
		found, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !found {
			return candidate, nil
		}
	}
	return "", werr.New(werr.PersistenceError, "failed to generate a unique id after %d attempts", maxAttempts)
}

func generate(hexLen int) (string, error) {
	buf := make([]byte, (hexLen+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", werr.Wrap(werr.PersistenceError, err, "reading random bytes for id generation")
	}
	return Prefix + hex.EncodeToString(buf)[:hexLen], nil
}

// Validate checks an externally supplied id against ^wv-[0-9a-fA-F]{4,6}$.
func Validate(idStr string) error {
	if !idPattern.MatchString(idStr) {
		return werr.New(werr.InvalidInput, "invalid id %q: must match ^wv-[0-9a-fA-F]{4,6}$", idStr)
	}
	return nil
}

// ValidateAlias checks an alias against ^[A-Za-z][A-Za-z0-9_-]*$.
func ValidateAlias(alias string) error {
	if alias == "" {
		return nil
	}
	if !aliasPattern.MatchString(alias) {
		return werr.New(werr.InvalidInput, "invalid alias %q: must match ^[A-Za-z][A-Za-z0-9_-]*$", alias)
	}
	return nil
}

// ValidateStatus checks a status against the closed enum in types.ValidStatuses.
func ValidateStatus(s types.Status) error {
	if !types.ValidStatuses[s] {
		return werr.New(werr.InvalidInput, "invalid status %q", s)
	}
	return nil
}

// ValidateEdgeType checks an edge type against the closed enum.
func ValidateEdgeType(t types.EdgeType) error {
	if !types.ValidEdgeTypes[t] {
		return werr.New(werr.InvalidInput, "invalid edge type %q", t)
	}
	return nil
}

// ValidateWeight checks that a weight is within [0.0, 1.0].
func ValidateWeight(w float64) error {
	if w < 0.0 || w > 1.0 {
		return werr.New(werr.InvalidInput, "invalid weight %v: must be in [0.0, 1.0]", w)
	}
	return nil
}

// IsID reports whether s has the shape of a node id, without returning an
// error — used by callers that need to branch between "id" and "alias"
// lookup paths.
func IsID(s string) bool {
	return idPattern.MatchString(s)
}

// ParseJSONShape is a structured error helper for JSON parse failures,
// used uniformly by metadata and RPC argument decoding.
func ParseJSONShape(field string, err error) error {
	return werr.Wrap(werr.InvalidInput, err, fmt.Sprintf("malformed JSON for %s", field))
}
