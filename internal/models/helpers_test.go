package models

import "testing"

func TestAggregateKey(t *testing.T) {
	if got := AggregateKey("shivneri", "mainGate"); got != "shivneri_mainGate" {
		t.Errorf("AggregateKey = %q, want %q", got, "shivneri_mainGate")
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		in   float64
		want float64
	}{
		{"round1 down", Round1, 7.44, 7.4},
		{"round1 up", Round1, 7.46, 7.5},
		{"round1 whole", Round1, 3, 3},
		{"round2", Round2, 0.256, 0.26},
		{"round2 small", Round2, 0.001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoringConfigUpdate_Apply(t *testing.T) {
	skip := 5.0
	off := false
	cfg := ScoringConfigUpdate{SkipWeight: &skip, Enabled: &off}.Apply(DefaultScoringConfig())

	if cfg.ClickWeight != 2 || cfg.TimeWeight != 1.5 {
		t.Errorf("unchanged weights modified: %+v", cfg)
	}
	if cfg.SkipWeight != 5 {
		t.Errorf("SkipWeight = %v, want 5", cfg.SkipWeight)
	}
	if cfg.Enabled {
		t.Error("expected Enabled false")
	}
}

func TestLocationAggregate_AverageTimeSpent(t *testing.T) {
	if got := (LocationAggregate{}).AverageTimeSpent(); got != 0 {
		t.Errorf("empty aggregate average = %v, want 0", got)
	}
	agg := LocationAggregate{TotalTimeSpent: 30, VisitCount: 4}
	if got := agg.AverageTimeSpent(); got != 7.5 {
		t.Errorf("average = %v, want 7.5", got)
	}
}
