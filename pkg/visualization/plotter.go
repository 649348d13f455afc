package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
)

// Plotter renders k-space trajectories and gradient waveforms as grayscale
// PNG images for quick visual inspection of a design.
type Plotter struct {
	// size is the width and height of the rendered images in pixels
	size int
}

// NewPlotter creates a plotter rendering square images of the given size.
func NewPlotter(size int) *Plotter {
	return &Plotter{size: size}
}

// TrajectoryImage renders a k-space sample cloud as a scatter plot centered
// on the k-space origin. kx and ky are the sample coordinates in 1/mm.
func (p *Plotter) TrajectoryImage(kx, ky []float64) (image.Image, error) {
	if p.size < 16 {
		return nil, fmt.Errorf("plot size %d too small (minimum 16)", p.size)
	}
	if len(kx) == 0 || len(kx) != len(ky) {
		return nil, fmt.Errorf("coordinate slices must be non-empty and equal length, got %d and %d",
			len(kx), len(ky))
	}

	// Symmetric extent so the origin lands in the image center.
	extent := 0.0
	for i := range kx {
		if r := math.Max(math.Abs(kx[i]), math.Abs(ky[i])); r > extent {
			extent = r
		}
	}
	if extent == 0 {
		return nil, fmt.Errorf("all samples at the origin")
	}

	img := image.NewGray(image.Rect(0, 0, p.size, p.size))
	half := float64(p.size-1) / 2
	for i := range kx {
		px := int(math.Round(half + kx[i]/extent*half))
		py := int(math.Round(half - ky[i]/extent*half))
		if px >= 0 && px < p.size && py >= 0 && py < p.size {
			img.SetGray(px, py, color.Gray{Y: 255})
		}
	}
	return img, nil
}

// WaveformImage renders the two gradient channels over time, Gx bright and
// Gy dimmer, with a midline marking zero amplitude.
func (p *Plotter) WaveformImage(gx, gy []float64) (image.Image, error) {
	if p.size < 16 {
		return nil, fmt.Errorf("plot size %d too small (minimum 16)", p.size)
	}
	if len(gx) == 0 || len(gx) != len(gy) {
		return nil, fmt.Errorf("channel slices must be non-empty and equal length, got %d and %d",
			len(gx), len(gy))
	}

	peak := 0.0
	for i := range gx {
		if v := math.Max(math.Abs(gx[i]), math.Abs(gy[i])); v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	img := image.NewGray(image.Rect(0, 0, p.size, p.size))
	mid := float64(p.size-1) / 2

	// Zero-amplitude midline.
	for x := 0; x < p.size; x++ {
		img.SetGray(x, int(mid), color.Gray{Y: 48})
	}

	plot := func(values []float64, level uint8) {
		for i, v := range values {
			px := i * (p.size - 1) / max(len(values)-1, 1)
			py := int(math.Round(mid - v/peak*mid))
			if py >= 0 && py < p.size {
				img.SetGray(px, py, color.Gray{Y: level})
			}
		}
	}
	plot(gy, 140)
	plot(gx, 255)

	return img, nil
}

// SavePlot writes a rendered image to a PNG file.
func (p *Plotter) SavePlot(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveTrajectory renders and saves a trajectory scatter plot.
func (p *Plotter) SaveTrajectory(kx, ky []float64, filename string) error {
	img, err := p.TrajectoryImage(kx, ky)
	if err != nil {
		return err
	}
	return p.SavePlot(img, filename)
}

// SaveWaveform renders and saves a waveform plot.
func (p *Plotter) SaveWaveform(gx, gy []float64, filename string) error {
	img, err := p.WaveformImage(gx, gy)
	if err != nil {
		return err
	}
	return p.SavePlot(img, filename)
}
