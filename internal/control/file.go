// Package control applies parameter settings read from a text file and
// re-applies them whenever the file changes.
//
// The file holds one "id = value" assignment per line. Values use the
// parameter's display syntax ("-6 dB", "On", "250"). Blank lines and
// lines starting with '#' are ignored.
package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Dhhoyt/HueHue/pkg/framework/param"
)

// ErrSyntax is returned for a line that is not an assignment.
var ErrSyntax = errors.New("control: syntax error")

// Target receives parsed settings. *param.Store satisfies it.
type Target interface {
	Parse(id, text string) (float64, error)
	SetTarget(id string, value float64) error
}

// Assignment is one "id = value" line.
type Assignment struct {
	Line  int
	ID    string
	Value string
}

// Parse reads every assignment from r.
func Parse(r io.Reader) ([]Assignment, error) {
	var out []Assignment
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, value, ok := strings.Cut(text, "=")
		id, value = strings.TrimSpace(id), strings.TrimSpace(value)
		if !ok || id == "" || value == "" {
			return nil, fmt.Errorf("%w: line %d: %q", ErrSyntax, line, text)
		}
		out = append(out, Assignment{Line: line, ID: id, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	return out, nil
}

// Apply sets every assignment on target. Bad lines are skipped and their
// errors joined; clamped values count as applied.
func Apply(target Target, assignments []Assignment) (int, error) {
	var errs []error
	applied := 0
	for _, a := range assignments {
		v, err := target.Parse(a.ID, a.Value)
		if err == nil {
			err = target.SetTarget(a.ID, v)
		}
		if err == nil || errors.Is(err, param.ErrConfigurationExceeded) {
			applied++
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", a.Line, err))
		}
	}
	return applied, errors.Join(errs...)
}

// LoadFile parses path and applies it to target.
func LoadFile(path string, target Target) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("control: %w", err)
	}
	defer f.Close()

	assignments, err := Parse(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	n, err := Apply(target, assignments)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
