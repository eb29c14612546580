// Package state saves and restores parameter targets.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"

	"github.com/Dhhoyt/HueHue/pkg/framework/param"
	"github.com/Dhhoyt/HueHue/pkg/framework/plugin"
)

const (
	magic = "HUEHUE"
	// Version is the newest format this package writes.
	Version uint32 = 1
	maxID          = 1 << 10
	maxVersion     = 64
)

var (
	// ErrInvalidFormat is returned for data that is not a saved state.
	ErrInvalidFormat = errors.New("state: invalid format")
	// ErrNewerVersion is returned for states written by a newer release.
	ErrNewerVersion = errors.New("state: newer version")
	// ErrIncompatiblePlugin is returned for states written by a plugin
	// release this one cannot stand in for.
	ErrIncompatiblePlugin = errors.New("state: incompatible plugin version")
)

// Manager handles parameter state saving and loading. Parameters are
// stored by id so reordering declarations keeps old states loadable. Each
// state records the plugin version that wrote it; a state loads when this
// plugin's version satisfies ^written.
type Manager struct {
	store *param.Store
	info  plugin.Info
}

// NewManager creates a manager for store owned by the plugin info.
func NewManager(store *param.Store, info plugin.Info) *Manager {
	return &Manager{store: store, info: info}
}

// Save writes every published target to w.
func (m *Manager) Save(w io.Writer) error {
	snap := m.store.Snapshot()

	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, Version); err != nil {
		return err
	}
	if err := writeString(w, m.info.Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(snap.Values))); err != nil {
		return err
	}

	for i, v := range snap.Values {
		if err := writeString(w, m.store.Param(i).ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a state from r and publishes its values as targets. Unknown
// ids are skipped. Values the store rejects are reported together after
// every other value has been applied.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if string(header) != magic {
		return ErrInvalidFormat
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if version > Version {
		return fmt.Errorf("%w: %d, supported %d", ErrNewerVersion, version, Version)
	}

	written, err := readString(r, maxVersion)
	if err != nil {
		return err
	}
	wv, err := semver.NewVersion(written)
	if err != nil {
		return fmt.Errorf("%w: plugin version %q", ErrInvalidFormat, written)
	}
	ok, err := m.info.Satisfies("^" + wv.String())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: written by %s %s, running %s",
			ErrIncompatiblePlugin, m.info.Name, written, m.info.Version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	type entry struct {
		id    string
		value float64
	}
	entries := make([]entry, 0, min(count, 64))
	for i := uint32(0); i < count; i++ {
		id, err := readString(r, maxID)
		if err != nil {
			return err
		}
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		entries = append(entries, entry{id, v})
	}

	// Apply only once the whole state has been read.
	var errs []error
	for _, e := range entries {
		if _, ok := m.store.Index(e.id); !ok {
			continue
		}
		err := m.store.SetTarget(e.id, e.value)
		if err != nil && !errors.Is(err, param.ErrConfigurationExceeded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readString reads a length-prefixed string of 1 to limit bytes.
func readString(r io.Reader, limit int) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if n == 0 || int(n) > limit {
		return "", fmt.Errorf("%w: string length %d", ErrInvalidFormat, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return string(b), nil
}
