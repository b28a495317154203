package avifhdr

import "fmt"

// fullResChroma holds unrounded U and V sample codes at luma resolution.
type fullResChroma struct {
	u, v []float32
	w, h int
}

// chromaDownsampler reduces full resolution chroma into the subsampled planes of dst.
type chromaDownsampler interface {
	downsample(dst *Image, c *fullResChroma) error
}

// newChromaDownsampler resolves a policy into a filter for 4:2:2 and 4:2:0 images,
// checking optional backends up front.
func newChromaDownsampler(policy ChromaDownsampling, rgb *RGBImage, img *Image, mode yuvMode) (chromaDownsampler, error) {
	switch policy {
	case ChromaDownsamplingAutomatic, ChromaDownsamplingAverage:
		return averageDownsampler{}, nil
	case ChromaDownsamplingFastest:
		return nearestDownsampler{}, nil
	case ChromaDownsamplingBestQuality:
		return filterDownsampler{def: kernelForInterpolation(InterpolationBicubic)}, nil
	case ChromaDownsamplingSharpYUV:
		return newSharpDownsampler(rgb, img, mode)
	}
	return nil, fmt.Errorf("%w: chroma downsampling %d", ErrInvalidArgument, policy)
}

func storeChroma(dst *Image, q quantizer, cx, cy int, u, v float32) {
	dst.SetSample(PlaneU, cx, cy, q.store(u))
	dst.SetSample(PlaneV, cx, cy, q.store(v))
}

// averageDownsampler is a box filter over the samples each chroma position covers.
// Blocks clipped by the right or bottom edge average only the samples that exist.
type averageDownsampler struct{}

func (averageDownsampler) downsample(dst *Image, c *fullResChroma) error {
	q := newQuantizer(dst.Depth, dst.YUVRange)
	sx, sy, _ := dst.YUVFormat.chromaShift()
	cw, ch := dst.PlaneWidth(PlaneU), dst.PlaneHeight(PlaneU)
	parallelFor(ch, func(start, end int) {
		for cy := start; cy < end; cy++ {
			y0 := cy << sy
			y1 := min(y0+1<<sy, c.h)
			for cx := 0; cx < cw; cx++ {
				x0 := cx << sx
				x1 := min(x0+1<<sx, c.w)
				var su, sv float32
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						su += c.u[y*c.w+x]
						sv += c.v[y*c.w+x]
					}
				}
				n := float32((y1 - y0) * (x1 - x0))
				storeChroma(dst, q, cx, cy, su/n, sv/n)
			}
		}
	})
	return nil
}

// nearestDownsampler keeps the top-left sample of each block.
type nearestDownsampler struct{}

func (nearestDownsampler) downsample(dst *Image, c *fullResChroma) error {
	q := newQuantizer(dst.Depth, dst.YUVRange)
	sx, sy, _ := dst.YUVFormat.chromaShift()
	cw, ch := dst.PlaneWidth(PlaneU), dst.PlaneHeight(PlaneU)
	parallelFor(ch, func(start, end int) {
		for cy := start; cy < end; cy++ {
			for cx := 0; cx < cw; cx++ {
				i := (cy<<sy)*c.w + cx<<sx
				storeChroma(dst, q, cx, cy, c.u[i], c.v[i])
			}
		}
	})
	return nil
}

// filterDownsampler resamples chroma with a multi-tap separable kernel.
type filterDownsampler struct {
	def kernelDef
}

func (f filterDownsampler) downsample(dst *Image, c *fullResChroma) error {
	q := newQuantizer(dst.Depth, dst.YUVRange)
	cw, ch := dst.PlaneWidth(PlaneU), dst.PlaneHeight(PlaneU)
	u := resamplePlane(c.u, c.w, c.h, cw, ch, f.def)
	v := resamplePlane(c.v, c.w, c.h, cw, ch, f.def)
	parallelFor(ch, func(start, end int) {
		for cy := start; cy < end; cy++ {
			for cx := 0; cx < cw; cx++ {
				storeChroma(dst, q, cx, cy, u[cy*cw+cx], v[cy*cw+cx])
			}
		}
	})
	return nil
}

// upsampleChroma returns U and V sample codes at luma resolution.
// Bilinear uses 3:1 weights toward the nearest chroma sample, nearest replicates it.
func upsampleChroma(img *Image, policy ChromaUpsampling) (u, v []float32, err error) {
	w, h := img.Width, img.Height
	if u, err = allocFloats(w * h); err != nil {
		return nil, nil, err
	}
	if v, err = allocFloats(w * h); err != nil {
		return nil, nil, err
	}
	sx, sy, _ := img.YUVFormat.chromaShift()
	cw, ch := img.PlaneWidth(PlaneU), img.PlaneHeight(PlaneU)
	nearest := sx == 0 && sy == 0 || policy == ChromaUpsamplingFastest || policy == ChromaUpsamplingNearest

	neighbor := func(pos, shift, n int) (int, int) {
		c := pos >> shift
		if shift == 0 {
			return c, c
		}
		o := c - 1
		if pos&1 == 1 {
			o = c + 1
		}
		return c, clampIndex(o, n)
	}

	parallelFor(h, func(start, end int) {
		for y := start; y < end; y++ {
			cy0, cy1 := neighbor(y, sy, ch)
			for x := 0; x < w; x++ {
				cx0, cx1 := neighbor(x, sx, cw)
				i := y*w + x
				if nearest {
					u[i] = float32(img.Sample(PlaneU, cx0, cy0))
					v[i] = float32(img.Sample(PlaneV, cx0, cy0))
					continue
				}
				u[i] = bilinear(img, PlaneU, cx0, cx1, cy0, cy1)
				v[i] = bilinear(img, PlaneV, cx0, cx1, cy0, cy1)
			}
		}
	})
	return u, v, nil
}

func bilinear(img *Image, c, x0, x1, y0, y1 int) float32 {
	top := 0.75*float32(img.Sample(c, x0, y0)) + 0.25*float32(img.Sample(c, x1, y0))
	if y0 == y1 {
		return top
	}
	bottom := 0.75*float32(img.Sample(c, x0, y1)) + 0.25*float32(img.Sample(c, x1, y1))
	return 0.75*top + 0.25*bottom
}
