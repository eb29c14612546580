package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
)

// Common parameter formatters and parsers

// GainToDecibelFormatter displays a linear gain in dB with the given
// number of decimals. Zero gain shows as "-inf dB".
func GainToDecibelFormatter(digits int) func(float64) string {
	return func(linear float64) string {
		if linear <= 0 {
			return "-inf dB"
		}
		db := gain.LinearToDb(linear)
		// Never print -0.00
		if math.Abs(db) < 0.5*math.Pow(10, -float64(digits)) {
			db = 0
		}
		return fmt.Sprintf("%.*f dB", digits, db)
	}
}

// DecibelToGainParser parses "x dB" strings into a linear gain.
func DecibelToGainParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	str = strings.TrimSuffix(strings.TrimSuffix(str, "dB"), "db")
	str = strings.TrimSpace(str)

	if strings.EqualFold(str, "-inf") || strings.Contains(str, "∞") {
		return 0, nil
	}
	db, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return gain.DbToLinear(db), nil
}

// BoolFormatter displays 0/1 as Off/On
func BoolFormatter(value float64) string {
	if value >= 0.5 {
		return "On"
	}
	return "Off"
}

// BoolParser parses on/off style strings
func BoolParser(str string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "on", "true", "yes", "1":
		return 1, nil
	case "off", "false", "no", "0":
		return 0, nil
	}
	return 0, fmt.Errorf("invalid boolean: %q", str)
}

// FrequencyFormatter formats frequency values with Hz/kHz
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.1f Hz", hz)
}
