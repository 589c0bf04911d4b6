package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(0.5, "convert") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PhaseChange(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "extract") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "extract") {
		t.Error("same phase and fraction should not log again")
	}
	if !s.ShouldLog(0, "  convert ") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "convert" {
		t.Errorf("lastPhase = %q, want convert (trimmed)", s.lastPhase)
	}
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(10)

	s.ShouldLog(0, "convert")
	if s.ShouldLog(0.05, "convert") {
		t.Error("5% should not log (same bucket)")
	}
	if !s.ShouldLog(0.7, "convert") {
		t.Error("70% should log (new bucket)")
	}
	if s.ShouldLog(0.75, "convert") {
		t.Error("75% should not log (same bucket)")
	}
	if s.ShouldLog(0.5, "convert") {
		t.Error("moving backwards should not log")
	}
	if !s.ShouldLog(1, "convert") {
		t.Error("100% should log")
	}
	if s.ShouldLog(1.2, "convert") {
		t.Error("values over 100% share the final bucket")
	}
}

func TestProgressSampler_NegativeFraction(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "deliver") {
		t.Error("first call should log on phase change")
	}
	if s.ShouldLog(-1, "deliver") {
		t.Error("unknown progress should not trigger bucket logging")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(0.5, "convert")

	s.Reset()

	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Errorf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(0.5, "convert") {
		t.Error("should log after reset")
	}
}
