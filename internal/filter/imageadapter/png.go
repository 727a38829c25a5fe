package imageadapter

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/mimecast/filterpipe/internal/filter"
)

// PNGKind implements the PNG decode adapter, with the same eager-decode
// plus scanline-at-a-time delivery as DCTKind — PNG could in principle
// stream row by row, but image/png exposes no such API either.
//
// image/png has no accessor for an embedded ICC profile chunk, so
// Info.ICCProfile is always left nil here; a consumer that needs it would
// have to scan the raw iCCP chunk itself, outside this adapter.
type PNGKind struct {
	filter.BaseKind

	prescan *replayReader
	info    *Info

	img    image.Image
	width  int
	height int
	row    int
	purge  func()
}

// NewPNG creates a PNGDecode filter over underlying.
func NewPNG(r *filter.Registry, name string, underlying filter.Ref, bufSize int) (*filter.Filter, error) {
	k := &PNGKind{}
	return filter.CreateChained(r, name, filter.Input, k, bufSize, nil, underlying, true)
}

func (k *PNGKind) SetPurgeNotify(cb func()) { k.purge = cb }

func (k *PNGKind) DecodeInfo(f *filter.Filter, match map[string]bool) (map[string]interface{}, error) {
	uf, err := f.Underlying()
	if err != nil {
		return nil, err
	}
	rr := newReplayReader(uf)
	cfg, err := png.DecodeConfig(rr)
	if err != nil {
		return nil, err
	}
	rr.stopRecording()
	k.prescan = rr

	hasAlpha := cfg.ColorModel == color.NRGBAModel || cfg.ColorModel == color.NRGBA64Model
	info := &Info{
		Width:            cfg.Width,
		Height:           cfg.Height,
		BitsPerComponent: 8,
		ColorSpace:       colorModelName(cfg.ColorModel),
		HasAlpha:         hasAlpha,
	}
	k.info = info

	out := make(map[string]interface{})
	if match["width"] {
		out["width"] = info.Width
	}
	if match["height"] {
		out["height"] = info.Height
	}
	if match["bits-per-component"] {
		out["bits-per-component"] = info.BitsPerComponent
	}
	if match["color-space"] {
		out["color-space"] = info.ColorSpace
	}
	if match["alpha"] {
		out["alpha"] = info.HasAlpha
	}
	return out, nil
}

func (k *PNGKind) FillBuff(f *filter.Filter) error {
	return f.GenericFill(k.decode)
}

func (k *PNGKind) decode(f *filter.Filter, out []byte) (filter.DecodeResult, error) {
	if k.img == nil {
		var src io.Reader
		if k.prescan != nil {
			src = k.prescan.Replay()
		} else {
			uf, err := f.Underlying()
			if err != nil {
				return filter.DecodeResult{}, err
			}
			src = uf
		}
		img, err := png.Decode(src)
		if err != nil {
			return filter.DecodeResult{}, err
		}
		k.img = img
		b := img.Bounds()
		k.width, k.height = b.Dx(), b.Dy()
	}

	if k.row >= k.height {
		return filter.DecodeResult{EOD: true}, nil
	}
	row := extractRow(k.img, k.row)
	n := copy(out, row)
	k.row++
	return filter.DecodeResult{N: n, EOD: k.row >= k.height}, nil
}

func (k *PNGKind) Close(f *filter.Filter, reason filter.CloseReason) error {
	if k.purge != nil && reason != filter.Explicit {
		k.purge()
	}
	return nil
}

func (k *PNGKind) Dispose(f *filter.Filter) {
	k.img = nil
	k.prescan = nil
}
