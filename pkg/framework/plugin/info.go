package plugin

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidInfo is returned by Info.Validate.
var ErrInvalidInfo = errors.New("invalid plugin info")

// Info contains plugin metadata
type Info struct {
	ID          string // Unique plugin identifier
	Name        string // Display name
	Version     string // Semantic version (e.g., "1.0.0")
	Vendor      string // Company/developer name
	Category    string // Plugin category (e.g., "Fx|EQ")
	Description string
	ClassID     string // At most 16 bytes, becomes the UID
}

// Validate checks that the identity is complete and the version parses.
func (i Info) Validate() error {
	if i.ID == "" || i.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidInfo)
	}
	if len(i.ClassID) > 16 {
		return fmt.Errorf("%w: class id %q longer than 16 bytes", ErrInvalidInfo, i.ClassID)
	}
	if _, err := semver.NewVersion(i.Version); err != nil {
		return fmt.Errorf("%w: version %q: %v", ErrInvalidInfo, i.Version, err)
	}
	return nil
}

// Satisfies reports whether the plugin version meets a constraint such
// as "^1.0".
func (i Info) Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(i.Version)
	if err != nil {
		return false, fmt.Errorf("%w: version %q: %v", ErrInvalidInfo, i.Version, err)
	}
	return c.Check(v), nil
}

// UID returns the 16-byte class identifier, zero padded. Falls back to
// the ID when no class id is set.
func (i Info) UID() [16]byte {
	src := i.ClassID
	if src == "" {
		src = i.ID
	}
	var uid [16]byte
	copy(uid[:], src)
	return uid
}
