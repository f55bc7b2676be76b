package profile

import "testing"

func TestQualityPresetMonotonicity(t *testing.T) {
	levels := []Quality{Low, Medium, High, Ultra}

	var s Settings
	s.ApplyQuality(levels[0])
	prev := s

	for _, q := range levels[1:] {
		s.ApplyQuality(q)

		if s.LensingMaxSteps <= prev.LensingMaxSteps {
			t.Fatalf("expected %s step budget to exceed %s (%d); got %d", q, prev.Quality, prev.LensingMaxSteps, s.LensingMaxSteps)
		}
		if s.LensingStepSize >= prev.LensingStepSize {
			t.Fatalf("expected %s step size to shrink below %s (%f); got %f", q, prev.Quality, prev.LensingStepSize, s.LensingStepSize)
		}
		if s.LensingBvhCheckInterval > prev.LensingBvhCheckInterval {
			t.Fatalf("expected %s bvh check interval not to exceed %s (%d); got %d", q, prev.Quality, prev.LensingBvhCheckInterval, s.LensingBvhCheckInterval)
		}

		prev = s
	}
}

func TestCustomQualityKeepsKnobs(t *testing.T) {
	s := DefaultSettings()
	s.LensingMaxSteps = 999
	s.LensingStepSize = 0.123
	s.LensingBvhCheckInterval = 3

	s.ApplyQuality(Custom)

	if s.Quality != Custom {
		t.Fatalf("expected quality to be tagged custom; got %s", s.Quality)
	}
	if s.LensingMaxSteps != 999 || s.LensingStepSize != 0.123 || s.LensingBvhCheckInterval != 3 {
		t.Fatalf("expected custom quality to keep the tuned knobs; got (%d, %f, %d)",
			s.LensingMaxSteps, s.LensingStepSize, s.LensingBvhCheckInterval)
	}
}

func TestClampCorrectsOutOfRangeValues(t *testing.T) {
	s := Settings{
		RaysPerPixel:            0,
		MaxBounces:              99,
		SampleCap:               1 << 30,
		Quality:                 Quality(17),
		LensingMaxSteps:         0,
		LensingStepSize:         50,
		LensingBvhCheckInterval: 0,
		LensingMaxDistance:      -1,
		Exposure:                0,
		Upscale:                 UpscaleMethod(42),
		UpscaleFactor:           0,
	}
	s.Clamp()

	if s.RaysPerPixel != 1 {
		t.Fatalf("expected rays per pixel to clamp to 1; got %d", s.RaysPerPixel)
	}
	if s.MaxBounces != 8 {
		t.Fatalf("expected max bounces to clamp to 8; got %d", s.MaxBounces)
	}
	if s.SampleCap != 1<<20 {
		t.Fatalf("expected sample cap to clamp to %d; got %d", 1<<20, s.SampleCap)
	}
	if s.Quality != Custom {
		t.Fatalf("expected invalid quality to clamp to custom; got %d", s.Quality)
	}
	if s.LensingMaxSteps != 16 {
		t.Fatalf("expected max steps to clamp to 16; got %d", s.LensingMaxSteps)
	}
	if s.LensingStepSize != 2.0 {
		t.Fatalf("expected step size to clamp to 2.0; got %f", s.LensingStepSize)
	}
	if s.LensingBvhCheckInterval != 1 {
		t.Fatalf("expected bvh check interval to clamp to 1; got %d", s.LensingBvhCheckInterval)
	}
	if s.LensingMaxDistance != 10 {
		t.Fatalf("expected max distance to clamp to 10; got %f", s.LensingMaxDistance)
	}
	if s.Exposure != 0.01 {
		t.Fatalf("expected exposure to clamp to 0.01; got %f", s.Exposure)
	}
	if s.Upscale != UpscaleNone || s.UpscaleFactor != 1 {
		t.Fatalf("expected invalid upscale method to clamp to none at native resolution; got (%s, %d)", s.Upscale, s.UpscaleFactor)
	}
}

func TestClampIsIdempotent(t *testing.T) {
	specs := []Settings{
		{},
		DefaultSettings(),
		{RaysPerPixel: 1 << 31, MaxBounces: 1 << 31, LensingStepSize: -3, Exposure: 1e9, Upscale: UpscaleBilinear, UpscaleFactor: 100},
	}

	for index, s := range specs {
		s.Clamp()
		clampedOnce := s
		s.Clamp()
		if s != clampedOnce {
			t.Fatalf("[spec %d] expected clamp to be idempotent; got %+v after second pass (was %+v)", index, s, clampedOnce)
		}
	}
}

func TestDefaultSettingsAreInRange(t *testing.T) {
	s := DefaultSettings()
	clamped := s
	clamped.Clamp()
	if s != clamped {
		t.Fatalf("expected default settings to survive clamping; got %+v, want %+v", clamped, s)
	}
}

func TestParseQuality(t *testing.T) {
	type spec struct {
		name    string
		expect  Quality
		expFail bool
	}
	specs := []spec{
		{"low", Low, false},
		{"Medium", Medium, false},
		{"HIGH", High, false},
		{"ultra", Ultra, false},
		{"custom", Custom, false},
		{"insane", Custom, true},
	}

	for index, s := range specs {
		q, err := ParseQuality(s.name)
		if s.expFail {
			if err == nil {
				t.Fatalf("[spec %d] expected parse error for %q", index, s.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] expected %q to parse; got error: %v", index, s.name, err)
		}
		if q != s.expect {
			t.Fatalf("[spec %d] expected %q to parse to %s; got %s", index, s.name, s.expect, q)
		}
	}
}
