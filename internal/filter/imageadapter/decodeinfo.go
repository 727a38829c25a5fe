// Package imageadapter implements the image-decoder adapter pattern of
// §4.9: DCT (JPEG) and PNG decode filters that additionally expose
// decode_info pre-scans, deliver one scanline per decode() call, and may
// interpose a rewindable, reusable-stream decoder underneath themselves so
// the pre-scan can be replayed for the real decode.
//
// The codecs themselves are out of scope (§1's Non-goals); both filters
// delegate to the standard library's image/jpeg and image/png, matching
// §4's framing that only the plug-in contract with the framework is
// in-scope here.
package imageadapter

import "errors"

// Info is the set of metadata decode_info can report, matching the keys
// named in §4.9: width, height, bits-per-component, colour space, an ICC
// profile if embedded, resolution, and whether the image carries an alpha
// channel.
type Info struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       string
	ICCProfile       []byte
	ResolutionX      float64
	ResolutionY      float64
	HasAlpha         bool
}

// Match is the caller-requested subset of Info keys decode_info should
// populate; unrequested fields are left at their zero value.
type Match struct {
	Width, Height, BitsPerComponent, ColorSpace, ICCProfile, Resolution, HasAlpha bool
}

var errNotPrescanned = errors.New("imageadapter: decode_info requested before a pre-scan ran")
