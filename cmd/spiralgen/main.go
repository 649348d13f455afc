package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"spiralgen/pkg/config"
	"spiralgen/pkg/spiral"
	"spiralgen/pkg/trajectory"
	"spiralgen/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "spiralgen.yaml", "Path to YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	outputDir := flag.String("output", "spiral_output", "Directory for generated files")
	resolution := flag.Int("resolution", 0, "Override base resolution (0: use config)")
	arms := flag.Int("arms", 0, "Override spiral arm count (0: use config)")
	fov := flag.Float64("fov", 0, "Override field of view in mm (0: use config)")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Apply command line overrides
	if *resolution > 0 {
		cfg.Acquisition.BaseResolution = *resolution
	}
	if *arms > 0 {
		cfg.Acquisition.SpiralArms = *arms
	}
	if *fov > 0 {
		cfg.Acquisition.FieldOfView = *fov
	}

	densityType, err := spiral.ParseDensityType(cfg.Density.Type)
	if err != nil {
		log.Fatalf("Invalid density configuration: %v", err)
	}
	ordering, err := trajectory.ParseOrdering(cfg.Trajectory.Ordering)
	if err != nil {
		log.Fatalf("Invalid trajectory configuration: %v", err)
	}

	params := spiral.Params{
		BaseResolution: cfg.Acquisition.BaseResolution,
		SpiralArms:     cfg.Acquisition.SpiralArms,
		FieldOfView:    cfg.Acquisition.FieldOfView,
		MaxGradAmpl:    cfg.Acquisition.MaxGradAmpl,
		MinRiseTime:    cfg.Acquisition.MinRiseTime,
		DwellTime:      cfg.Acquisition.DwellTime,
		ReadoutOS:      cfg.Acquisition.ReadoutOS,
		GradientDelay:  cfg.Acquisition.GradientDelay,
		LarmorConst:    cfg.Acquisition.LarmorConst,
	}
	if densityType != spiral.DensityUniform {
		params.Density = spiral.DensityParams{
			Type:         densityType,
			InnerCutoff:  cfg.Density.InnerCutoff,
			OuterCutoff:  cfg.Density.OuterCutoff,
			OuterDensity: cfg.Density.OuterDensity,
		}
	}

	fmt.Println("================================")
	fmt.Println("GRADIENT-LIMITED SPIRAL K-SPACE TRAJECTORY DESIGN")
	fmt.Println("================================")
	fmt.Printf("Matrix: %d  Arms: %d  FOV: %.1f mm\n",
		params.BaseResolution, params.SpiralArms, params.FieldOfView)
	fmt.Printf("Gradient limit: %.1f mT/m  Slew limit: %.0f mT/m/s\n",
		params.MaxGradAmpl, params.MaxGradAmpl/params.MinRiseTime)

	// Design the gradient waveform
	startTime := time.Now()
	waveform, err := spiral.Generate(params)
	if err != nil {
		log.Fatalf("Waveform design failed: %v", err)
	}
	designTime := time.Since(startTime)

	stats := spiral.ComputeStats(waveform, params)
	fmt.Printf("\nWaveform designed in %.3f seconds\n\n", designTime.Seconds())
	fmt.Printf("Waveform summary:\n")
	fmt.Printf("=================\n")
	fmt.Printf("Samples: %d (capacity %d)\n", stats.Samples, spiral.MaxWaveformSize)
	fmt.Printf("Readout duration: %.3f ms\n", stats.Duration*1e3)
	fmt.Printf("Peak gradient: %.2f mT/m\n", stats.PeakGradient)
	fmt.Printf("Mean gradient: %.2f mT/m\n", stats.MeanGradient)
	fmt.Printf("Peak slew rate: %.0f mT/m/s\n", stats.PeakSlewRate)
	fmt.Printf("K-space radius: %.4f 1/mm\n", stats.KSpaceRadius)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	waveformPath := filepath.Join(*outputDir, "waveform.csv")
	if err := writeWaveformCSV(waveformPath, waveform); err != nil {
		log.Fatalf("Failed to write waveform: %v", err)
	}
	fmt.Printf("\nWaveform saved to: %s\n", waveformPath)

	// Expand the single arm into the full multi-shot trajectory
	base := trajectory.KSpace(waveform, params)
	views := cfg.Trajectory.Views
	phases := cfg.Trajectory.Phases
	arms2D, err := trajectory.Expand(base, views, phases, ordering)
	if err != nil {
		log.Fatalf("Trajectory expansion failed: %v", err)
	}
	samples := trajectory.Flatten(arms2D)
	fmt.Printf("Trajectory: %d views x %d phases (%s ordering), %d samples\n",
		views, phases, cfg.Trajectory.Ordering, len(samples))

	if cfg.Output.Verbose {
		gap, err := trajectory.NyquistCoverage(samples, params.FieldOfView)
		if err != nil {
			log.Printf("Warning: coverage check failed: %v", err)
		} else {
			limit := 1 / params.FieldOfView
			status := "fully sampled"
			if gap > limit {
				status = "undersampled"
			}
			fmt.Printf("Nyquist coverage: largest gap %.5f 1/mm (limit %.5f) - %s\n",
				gap, limit, status)
		}
	}

	// Render plots if requested
	if cfg.Output.SavePlots {
		plotter := visualization.NewPlotter(cfg.Output.PlotSize)

		kx := make([]float64, len(samples))
		ky := make([]float64, len(samples))
		for i, s := range samples {
			kx[i] = s.Kx
			ky[i] = s.Ky
		}

		trajPath := filepath.Join(*outputDir, "trajectory.png")
		if err := plotter.SaveTrajectory(kx, ky, trajPath); err != nil {
			log.Printf("Warning: failed to save trajectory plot: %v", err)
		} else {
			fmt.Printf("Trajectory plot saved to: %s\n", trajPath)
		}

		gx := make([]float64, len(waveform))
		gy := make([]float64, len(waveform))
		for i, s := range waveform {
			gx[i] = float64(s.Gx)
			gy[i] = float64(s.Gy)
		}

		wavePath := filepath.Join(*outputDir, "waveform.png")
		if err := plotter.SaveWaveform(gx, gy, wavePath); err != nil {
			log.Printf("Warning: failed to save waveform plot: %v", err)
		} else {
			fmt.Printf("Waveform plot saved to: %s\n", wavePath)
		}
	}
}

// writeWaveformCSV writes the gradient waveform as index,gx,gy rows.
func writeWaveformCSV(path string, w spiral.Waveform) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"index", "gx_mT_m", "gy_mT_m"}); err != nil {
		return err
	}
	for i, s := range w {
		record := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(float64(s.Gx), 'g', -1, 32),
			strconv.FormatFloat(float64(s.Gy), 'g', -1, 32),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}
