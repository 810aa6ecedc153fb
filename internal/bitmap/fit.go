package bitmap

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// AspectFit returns the destination rectangle that fits a srcW x srcH image
// inside a dstW x dstH box, centered, preserving aspect ratio.
func AspectFit(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}
	srcAR := float64(srcW) / float64(srcH)
	dstAR := float64(dstW) / float64(dstH)
	if srcAR > dstAR {
		h := int(math.Round(float64(dstW) / srcAR))
		dy := int(math.Round(float64(dstH-h) / 2))
		return image.Rect(0, dy, dstW, dy+h)
	}
	w := int(math.Round(float64(dstH) * srcAR))
	dx := int(math.Round(float64(dstW-w) / 2))
	return image.Rect(dx, 0, dx+w, dstH)
}

// DrawLetterboxed clears dst to black and draws src aspect-fitted into it.
// A nil interpolator selects Catmull-Rom.
func DrawLetterboxed(dst draw.Image, src image.Image, interp draw.Interpolator) {
	if dst == nil || src == nil {
		return
	}
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
	box := AspectFit(src.Bounds().Dx(), src.Bounds().Dy(), bounds.Dx(), bounds.Dy())
	if box.Empty() {
		return
	}
	if interp == nil {
		interp = draw.CatmullRom
	}
	interp.Scale(dst, box.Add(bounds.Min), src, src.Bounds(), draw.Src, nil)
}

// DrawFittedAlpha draws src aspect-fitted over dst at the given opacity
// (0..1) without clearing dst first.
func DrawFittedAlpha(dst draw.Image, src image.Image, opacity float64, interp draw.Interpolator) {
	if dst == nil || src == nil || opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	bounds := dst.Bounds()
	box := AspectFit(src.Bounds().Dx(), src.Bounds().Dy(), bounds.Dx(), bounds.Dy())
	if box.Empty() {
		return
	}
	if interp == nil {
		interp = draw.ApproxBiLinear
	}
	scaled := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	interp.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(dst, box.Add(bounds.Min), scaled, image.Point{}, mask, image.Point{}, draw.Over)
}
