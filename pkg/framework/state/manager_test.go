package state

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhhoyt/HueHue/pkg/framework/param"
	"github.com/Dhhoyt/HueHue/pkg/framework/plugin"
)

var testInfo = plugin.Info{ID: "test", Name: "Test", Version: "1.2.0"}

func newStore(t *testing.T) *param.Store {
	t.Helper()
	s, err := param.NewStore(
		param.ToggleParameter("enabled", "Enabled", false).Build(),
		param.IntParameter("count", "Count", 1, 10, 4).ClampOverflow().Build(),
		param.New("level", "Level").Range(0, 100).Default(50).Build(),
	)
	require.NoError(t, err)
	return s
}

func values(t *testing.T, s *param.Store) []float64 {
	t.Helper()
	return append([]float64(nil), s.Snapshot().Values...)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := newStore(t)
	require.NoError(t, src.SetTarget("enabled", 1))
	require.NoError(t, src.SetTarget("count", 7))
	require.NoError(t, src.SetTarget("level", 12.5))

	var buf bytes.Buffer
	require.NoError(t, NewManager(src, testInfo).Save(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(magic)))
	assert.Contains(t, buf.String(), testInfo.Version)

	dst := newStore(t)
	require.NoError(t, NewManager(dst, testInfo).Load(&buf))
	assert.Equal(t, values(t, src), values(t, dst))
	assert.Equal(t, uint64(3), dst.Snapshot().Version, "one publication per value")
}

// encode writes a state by hand so tests can vary its contents.
func encode(version uint32, written string, entries map[string]float64, order ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, uint16(len(written)))
	buf.WriteString(written)
	binary.Write(&buf, binary.LittleEndian, uint32(len(order)))
	for _, id := range order {
		binary.Write(&buf, binary.LittleEndian, uint16(len(id)))
		buf.WriteString(id)
		binary.Write(&buf, binary.LittleEndian, entries[id])
	}
	return buf.Bytes()
}

func TestLoadByID(t *testing.T) {
	s := newStore(t)
	data := encode(Version, "1.0.0", map[string]float64{
		"level":   80,
		"removed": 3,
		"count":   25,
	}, "level", "removed", "count")

	require.NoError(t, NewManager(s, testInfo).Load(bytes.NewReader(data)), "unknown ids and clamps are fine")
	assert.Equal(t, []float64{0, 10, 80}, values(t, s))
}

func TestLoadRejectedValues(t *testing.T) {
	s := newStore(t)
	data := encode(Version, "1.2.0", map[string]float64{
		"level":   -5,
		"enabled": math.NaN(),
		"count":   2,
	}, "level", "enabled", "count")

	err := NewManager(s, testInfo).Load(bytes.NewReader(data))
	assert.ErrorIs(t, err, param.ErrInvalidParameterValue)
	assert.Equal(t, []float64{0, 2, 50}, values(t, s), "valid values still applied")
}

func TestLoadInvalidData(t *testing.T) {
	good := encode(Version, "1.2.0", map[string]float64{"level": 1}, "level")
	noEntries := encode(Version, "1.2.0", nil)

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrInvalidFormat},
		{"wrong magic", []byte("VST3GO\x01\x00\x00\x00"), ErrInvalidFormat},
		{"truncated", good[:len(good)-3], ErrInvalidFormat},
		{"zero id", append(noEntries[:len(noEntries)-4:len(noEntries)-4], 1, 0, 0, 0, 0, 0), ErrInvalidFormat},
		{"newer", encode(Version+1, "1.2.0", nil), ErrNewerVersion},
		{"no plugin version", encode(Version, "", nil), ErrInvalidFormat},
		{"bad plugin version", encode(Version, "one", nil), ErrInvalidFormat},
		{"newer plugin", encode(Version, "1.3.0", map[string]float64{"level": 1}, "level"), ErrIncompatiblePlugin},
		{"older major", encode(Version, "0.9.0", map[string]float64{"level": 1}, "level"), ErrIncompatiblePlugin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			before := values(t, s)
			err := NewManager(s, testInfo).Load(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, before, values(t, s), "nothing applied")
		})
	}
}
