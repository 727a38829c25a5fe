package imageadapter

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/mimecast/filterpipe/internal/filter"
)

// DCTKind implements the DCT (JPEG) decode adapter. The underlying codec
// has no native scanline-streaming API, so the whole image is decoded on
// the first Decode call and then served back one scanline per call —
// satisfying the framework's per-call contract without pretending the
// codec itself streams.
type DCTKind struct {
	filter.BaseKind

	prescan *replayReader
	info    *Info

	img      image.Image
	width    int
	height   int
	row      int
	purge    func()
}

// New creates a DCTDecode filter over underlying.
func New(r *filter.Registry, name string, underlying filter.Ref, bufSize int) (*filter.Filter, error) {
	k := &DCTKind{}
	return filter.CreateChained(r, name, filter.Input, k, bufSize, nil, underlying, true)
}

// SetPurgeNotify registers cb to run when the framework implicitly or
// forcibly closes this filter (§4.9's purge-notify call-back), so an
// overlying PDF-layer filter can clean up.
func (k *DCTKind) SetPurgeNotify(cb func()) { k.purge = cb }

func (k *DCTKind) DecodeInfo(f *filter.Filter, match map[string]bool) (map[string]interface{}, error) {
	uf, err := f.Underlying()
	if err != nil {
		return nil, err
	}
	rr := newReplayReader(uf)
	cfg, err := jpeg.DecodeConfig(rr)
	if err != nil {
		return nil, err
	}
	rr.stopRecording()
	k.prescan = rr

	info := &Info{
		Width:            cfg.Width,
		Height:           cfg.Height,
		BitsPerComponent: 8,
		ColorSpace:       colorModelName(cfg.ColorModel),
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

func (k *DCTKind) FillBuff(f *filter.Filter) error {
	return f.GenericFill(k.decode)
}

func (k *DCTKind) decode(f *filter.Filter, out []byte) (filter.DecodeResult, error) {
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
		img, err := jpeg.Decode(src)
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

func (k *DCTKind) Close(f *filter.Filter, reason filter.CloseReason) error {
	if k.purge != nil && reason != filter.Explicit {
		k.purge()
	}
	return nil
}

func (k *DCTKind) Dispose(f *filter.Filter) {
	k.img = nil
	k.prescan = nil
}

func extractRow(img image.Image, y int) []byte {
	b := img.Bounds()
	w := b.Dx()
	row := make([]byte, w*4)
	for x := 0; x < w; x++ {
		r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		row[x*4+0] = byte(r >> 8)
		row[x*4+1] = byte(g >> 8)
		row[x*4+2] = byte(bl >> 8)
		row[x*4+3] = byte(a >> 8)
	}
	return row
}

func colorModelName(m color.Model) string {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return "gray"
	case color.CMYKModel:
		return "cmyk"
	default:
		return "rgb"
	}
}
