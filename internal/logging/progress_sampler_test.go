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

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "encode") {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerPhaseChange(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(0, "resolve") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "resolve") {
		t.Error("same phase and bucket should not log again")
	}
	if !s.ShouldLog(0, "encode") {
		t.Error("phase change should log")
	}
	if s.lastPhase != "encode" {
		t.Errorf("lastPhase = %q, want encode", s.lastPhase)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(0, "encode")
	if s.ShouldLog(7, "encode") {
		t.Error("7% should stay in bucket 0")
	}
	if !s.ShouldLog(10, "encode") {
		t.Error("10% should log")
	}
	if !s.ShouldLog(100, "encode") {
		t.Error("100% should log")
	}
	if s.ShouldLog(140, "encode") {
		t.Error("values over 100% should clamp to the final bucket")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "record") {
		t.Error("first call should log on phase change")
	}
	if s.ShouldLog(-1, "record") {
		t.Error("unknown percent should not trigger bucket logging")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "encode")
	s.Reset()
	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state phase=%q bucket=%d", s.lastPhase, s.lastBucket)
	}
	if !s.ShouldLog(50, "encode") {
		t.Error("should log after reset")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(3, 12); got != 25 {
		t.Fatalf("Percent(3, 12) = %v, want 25", got)
	}
	if got := Percent(3, 0); got != -1 {
		t.Fatalf("Percent with zero total = %v, want -1", got)
	}
}
