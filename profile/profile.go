package profile

import (
	"fmt"
	"strings"
)

// DeviceClass buckets host hardware by rendering capability.
type DeviceClass uint8

const (
	Handheld DeviceClass = iota
	Laptop
	Desktop
	Workstation
)

func (dc DeviceClass) String() string {
	switch dc {
	case Handheld:
		return "handheld"
	case Laptop:
		return "laptop"
	case Workstation:
		return "workstation"
	}
	return "desktop"
}

// ParseDeviceClass maps a name to a device class.
func ParseDeviceClass(name string) (DeviceClass, error) {
	switch strings.ToLower(name) {
	case "handheld":
		return Handheld, nil
	case "laptop":
		return Laptop, nil
	case "desktop":
		return Desktop, nil
	case "workstation":
		return Workstation, nil
	}
	return Desktop, fmt.Errorf("profile: unknown device class %q", name)
}

// Classes lists the supported device classes from weakest to strongest.
func Classes() []DeviceClass {
	return []DeviceClass{Handheld, Laptop, Desktop, Workstation}
}

// Profile is an immutable settings bundle tuned for a device class.
// RaysPerPixel, MaxBounces and the quality step budget never decrease
// from Handheld to Workstation; Handheld always renders at reduced
// internal resolution.
type Profile struct {
	Class   DeviceClass
	Quality Quality

	RaysPerPixel uint32
	MaxBounces   uint32
	Denoise      bool

	Upscale       UpscaleMethod
	UpscaleFactor uint32
}

var profiles = [...]Profile{
	Handheld: {
		Class:         Handheld,
		Quality:       Low,
		RaysPerPixel:  1,
		MaxBounces:    0,
		Denoise:       true,
		Upscale:       UpscaleBilinear,
		UpscaleFactor: 2,
	},
	Laptop: {
		Class:         Laptop,
		Quality:       Medium,
		RaysPerPixel:  1,
		MaxBounces:    1,
		Denoise:       true,
		Upscale:       UpscaleNone,
		UpscaleFactor: 1,
	},
	Desktop: {
		Class:         Desktop,
		Quality:       High,
		RaysPerPixel:  2,
		MaxBounces:    2,
		Denoise:       false,
		Upscale:       UpscaleNone,
		UpscaleFactor: 1,
	},
	Workstation: {
		Class:         Workstation,
		Quality:       Ultra,
		RaysPerPixel:  4,
		MaxBounces:    3,
		Denoise:       false,
		Upscale:       UpscaleNone,
		UpscaleFactor: 1,
	},
}

// ForClass returns the canned profile for a device class.
func ForClass(class DeviceClass) Profile {
	if int(class) >= len(profiles) {
		class = Desktop
	}
	return profiles[class]
}

// ApplyTo copies the profile fields into the settings and re-clamps.
// The quality preset is applied last so the lensing knobs always match
// the profile's quality level.
func (p Profile) ApplyTo(s *Settings) {
	s.RaysPerPixel = p.RaysPerPixel
	s.MaxBounces = p.MaxBounces
	s.Denoise = p.Denoise
	s.Upscale = p.Upscale
	s.UpscaleFactor = p.UpscaleFactor
	s.ApplyQuality(p.Quality)
	s.Clamp()
}
