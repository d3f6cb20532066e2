package calib

import (
	"fmt"
	"sort"
	"strings"
)

// Flags selects which distortion-model terms the solver estimates or fixes.
// Values match the OpenCV calibration flag bits so they can be handed to the
// solver unchanged.
type Flags int64

const (
	FlagUseIntrinsicGuess Flags = 0x00001
	FlagFixAspectRatio    Flags = 0x00002
	FlagFixPrincipalPoint Flags = 0x00004
	FlagZeroTangentDist   Flags = 0x00008
	FlagFixFocalLength    Flags = 0x00010
	FlagFixK1             Flags = 0x00020
	FlagFixK2             Flags = 0x00040
	FlagFixK3             Flags = 0x00080
	FlagFixK4             Flags = 0x00800
	FlagFixK5             Flags = 0x01000
	FlagFixK6             Flags = 0x02000
	FlagRationalModel     Flags = 0x04000
	FlagThinPrismModel    Flags = 0x08000
	FlagTiltedModel       Flags = 0x40000
)

// DefaultFlags stabilizes the distortion estimate for typical optics: the
// extended rational model with tangential terms zeroed.
const DefaultFlags = FlagRationalModel | FlagZeroTangentDist

var flagNames = map[string]Flags{
	"use-intrinsic-guess": FlagUseIntrinsicGuess,
	"fix-aspect-ratio":    FlagFixAspectRatio,
	"fix-principal-point": FlagFixPrincipalPoint,
	"zero-tangent":        FlagZeroTangentDist,
	"fix-focal-length":    FlagFixFocalLength,
	"fix-k1":              FlagFixK1,
	"fix-k2":              FlagFixK2,
	"fix-k3":              FlagFixK3,
	"fix-k4":              FlagFixK4,
	"fix-k5":              FlagFixK5,
	"fix-k6":              FlagFixK6,
	"rational":            FlagRationalModel,
	"thin-prism":          FlagThinPrismModel,
	"tilted":              FlagTiltedModel,
}

// ParseFlags builds a flag set from a comma-separated list of names, e.g.
// "rational,zero-tangent,fix-k3". An empty list yields DefaultFlags.
func ParseFlags(list string) (Flags, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return DefaultFlags, nil
	}
	var f Flags
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		bit, ok := flagNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown calibration flag %q (known: %s)", name, knownFlagNames())
		}
		f |= bit
	}
	return f, nil
}

func (f Flags) String() string {
	var names []string
	for name, bit := range flagNames {
		if f&bit != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

func knownFlagNames() string {
	names := make([]string, 0, len(flagNames))
	for name := range flagNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
