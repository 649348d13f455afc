package trajectory

import (
	"math"
	"testing"

	"spiralgen/pkg/spiral"
)

// testParams returns a short reference acquisition so the trajectory tests
// stay fast: a 64-matrix, 8-arm spiral on a 240 mm field of view.
func testParams() spiral.Params {
	return spiral.Params{
		BaseResolution: 64,
		SpiralArms:     8,
		FieldOfView:    240.0,
		MaxGradAmpl:    24.0,
		MinRiseTime:    0.0002,
		DwellTime:      4e-6,
		ReadoutOS:      1.0,
		LarmorConst:    42577.0,
	}
}

// generateArm designs the reference waveform and integrates it to k-space.
func generateArm(t *testing.T, p spiral.Params) Arm {
	t.Helper()

	w, err := spiral.Generate(p)
	if err != nil {
		t.Fatalf("Waveform generation failed: %v", err)
	}
	return KSpace(w, p)
}

// TestKSpaceIntegration verifies that integrating the waveform recovers a
// path from the origin out to the Nyquist radius.
func TestKSpaceIntegration(t *testing.T) {
	p := testParams()
	arm := generateArm(t, p)

	if len(arm) == 0 {
		t.Fatal("Expected non-empty arm")
	}

	// The path starts near the origin.
	if r0 := math.Hypot(arm[0].Kx, arm[0].Ky); r0 > 0.01*float64(p.BaseResolution)/(2*p.FieldOfView) {
		t.Errorf("Expected first sample near the origin, got radius %.6f", r0)
	}

	kmax := float64(p.BaseResolution) / (2 * p.FieldOfView)
	last := arm[len(arm)-1]
	if r := math.Hypot(last.Kx, last.Ky); math.Abs(r-kmax)/kmax > 0.005 {
		t.Errorf("Expected final radius %.5f 1/mm, got %.5f", kmax, r)
	}
}

// TestViewAnglesLinear verifies uniform spacing repeated across phases.
func TestViewAnglesLinear(t *testing.T) {
	angles, err := ViewAngles(4, 2, OrderingLinear)
	if err != nil {
		t.Fatalf("ViewAngles failed: %v", err)
	}

	want := []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
	for ph := 0; ph < 2; ph++ {
		for v, a := range angles[ph] {
			if math.Abs(a-want[v]) > 1e-12 {
				t.Errorf("Phase %d view %d: expected %.6f, got %.6f", ph, v, want[v], a)
			}
		}
	}
}

// TestViewAnglesGolden verifies golden-angle increments and that the
// sequence continues across phase boundaries.
func TestViewAnglesGolden(t *testing.T) {
	views, phases := 5, 3
	angles, err := ViewAngles(views, phases, OrderingGolden)
	if err != nil {
		t.Fatalf("ViewAngles failed: %v", err)
	}

	for ph := 0; ph < phases; ph++ {
		for v := 0; v < views; v++ {
			want := math.Mod(float64(ph*views+v)*goldenAngle, 2*math.Pi)
			if math.Abs(angles[ph][v]-want) > 1e-12 {
				t.Errorf("Phase %d view %d: expected %.6f, got %.6f", ph, v, want, angles[ph][v])
			}
		}
	}
}

// TestViewAnglesTiny verifies the tiny golden angle increment.
func TestViewAnglesTiny(t *testing.T) {
	angles, err := ViewAngles(3, 1, OrderingTiny)
	if err != nil {
		t.Fatalf("ViewAngles failed: %v", err)
	}

	inc := angles[0][1] - angles[0][0]
	if math.Abs(inc-tinyGoldenAngle) > 1e-12 {
		t.Errorf("Expected increment %.6f, got %.6f", tinyGoldenAngle, inc)
	}
	if tinyGoldenAngle >= goldenAngle {
		t.Errorf("Tiny golden angle %.6f should be smaller than golden angle %.6f",
			tinyGoldenAngle, goldenAngle)
	}
}

// TestViewAnglesSorted verifies that each phase holds the same angles as the
// golden ordering, sorted ascending.
func TestViewAnglesSorted(t *testing.T) {
	views, phases := 6, 2
	sorted, err := ViewAngles(views, phases, OrderingSorted)
	if err != nil {
		t.Fatalf("ViewAngles failed: %v", err)
	}
	golden, err := ViewAngles(views, phases, OrderingGolden)
	if err != nil {
		t.Fatalf("ViewAngles failed: %v", err)
	}

	for ph := 0; ph < phases; ph++ {
		for v := 1; v < views; v++ {
			if sorted[ph][v] < sorted[ph][v-1] {
				t.Errorf("Phase %d: angles not ascending at view %d", ph, v)
			}
		}

		// Same angles as the golden ordering, as a set.
		sum, sumGolden := 0.0, 0.0
		for v := 0; v < views; v++ {
			sum += sorted[ph][v]
			sumGolden += golden[ph][v]
		}
		if math.Abs(sum-sumGolden) > 1e-9 {
			t.Errorf("Phase %d: sorted angles do not match golden set", ph)
		}
	}
}

// TestViewAnglesValidation verifies rejection of invalid view counts.
func TestViewAnglesValidation(t *testing.T) {
	if _, err := ViewAngles(0, 1, OrderingLinear); err == nil {
		t.Error("Expected error for zero views")
	}
	if _, err := ViewAngles(4, 0, OrderingLinear); err == nil {
		t.Error("Expected error for zero phases")
	}
}

// TestExpand verifies the trajectory shape and that rotation preserves each
// sample's distance from the k-space origin.
func TestExpand(t *testing.T) {
	p := testParams()
	base := generateArm(t, p)

	views, phases := 8, 2
	arms, err := Expand(base, views, phases, OrderingLinear)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(arms) != phases {
		t.Fatalf("Expected %d phases, got %d", phases, len(arms))
	}
	for ph := range arms {
		if len(arms[ph]) != views {
			t.Fatalf("Phase %d: expected %d views, got %d", ph, views, len(arms[ph]))
		}
		for v := range arms[ph] {
			if len(arms[ph][v]) != len(base) {
				t.Fatalf("Phase %d view %d: expected %d samples, got %d",
					ph, v, len(base), len(arms[ph][v]))
			}
		}
	}

	// View 0 rotates by zero and must reproduce the base arm.
	for i, pt := range arms[0][0] {
		if math.Abs(pt.Kx-base[i].Kx) > 1e-12 || math.Abs(pt.Ky-base[i].Ky) > 1e-12 {
			t.Fatalf("View 0 sample %d differs from base: %+v vs %+v", i, pt, base[i])
		}
	}

	// Rotation preserves radii.
	for v := 1; v < views; v++ {
		for i := 0; i < len(base); i += 50 {
			rBase := math.Hypot(base[i].Kx, base[i].Ky)
			rView := math.Hypot(arms[0][v][i].Kx, arms[0][v][i].Ky)
			if math.Abs(rBase-rView) > 1e-9 {
				t.Fatalf("View %d sample %d: radius %.9f differs from base %.9f", v, i, rView, rBase)
			}
		}
	}
}

// TestExpandValidation verifies rejection of an empty base arm.
func TestExpandValidation(t *testing.T) {
	if _, err := Expand(nil, 4, 1, OrderingLinear); err == nil {
		t.Error("Expected error for empty base arm")
	}
}

// TestFlatten verifies the flattened sample count.
func TestFlatten(t *testing.T) {
	p := testParams()
	base := generateArm(t, p)

	arms, err := Expand(base, 4, 3, OrderingGolden)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	flat := Flatten(arms)
	if want := 4 * 3 * len(base); len(flat) != want {
		t.Errorf("Expected %d samples, got %d", want, len(flat))
	}
}

// TestParseOrdering verifies the configuration string mapping.
func TestParseOrdering(t *testing.T) {
	cases := []struct {
		in   string
		want Ordering
	}{
		{"", OrderingLinear},
		{"linear", OrderingLinear},
		{"golden", OrderingGolden},
		{"tiny", OrderingTiny},
		{"sorted", OrderingSorted},
	}

	for _, tc := range cases {
		got, err := ParseOrdering(tc.in)
		if err != nil {
			t.Errorf("ParseOrdering(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseOrdering(%q) = %d, expected %d", tc.in, got, tc.want)
		}
	}

	if _, err := ParseOrdering("radial"); err == nil {
		t.Error("Expected error for unknown ordering")
	}
}

// TestNyquistCoverage verifies that a spiral acquired with as many views as
// design arms meets the Nyquist criterion, while a fraction of the views
// leaves gaps larger than 1/fov.
func TestNyquistCoverage(t *testing.T) {
	p := testParams()
	base := generateArm(t, p)

	full, err := Expand(base, p.SpiralArms, 1, OrderingLinear)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	ok, err := IsFullySampled(Flatten(full), p.FieldOfView)
	if err != nil {
		t.Fatalf("IsFullySampled failed: %v", err)
	}
	if !ok {
		t.Error("Expected full view count to satisfy the Nyquist criterion")
	}

	under, err := Expand(base, p.SpiralArms/4, 1, OrderingLinear)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	gap, err := NyquistCoverage(Flatten(under), p.FieldOfView)
	if err != nil {
		t.Fatalf("NyquistCoverage failed: %v", err)
	}
	if gap <= 1/p.FieldOfView {
		t.Errorf("Expected undersampled gap above %.6f 1/mm, got %.6f", 1/p.FieldOfView, gap)
	}
}

// TestNyquistCoverageValidation verifies input checks.
func TestNyquistCoverageValidation(t *testing.T) {
	if _, err := NyquistCoverage(Arm{{Kx: 0, Ky: 0}}, 240); err == nil {
		t.Error("Expected error for a single sample")
	}
	if _, err := NyquistCoverage(Arm{{}, {Kx: 0.1}}, 0); err == nil {
		t.Error("Expected error for non-positive field of view")
	}
}
