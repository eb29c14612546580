// Package huehue implements the HueHue colorizer: a bank of resonant
// peaking filters repeated across octaves, driven by smoothed host
// parameters.
package huehue

import "github.com/Dhhoyt/HueHue/pkg/framework/plugin"

// Version is the plugin version.
const Version = "0.1.0"

// Info is the plugin identity handed to host registration.
var Info = plugin.Info{
	ID:          "HueHue",
	Name:        "HueHue",
	Version:     Version,
	Vendor:      "Boxman",
	Category:    "Fx|Dynamics",
	Description: "A colorizer plugin",
	ClassID:     "HueHue Colorizer",
}
