package swap

import (
	"math"
	"testing"

	logx "mimicbot/pkg/logx"
)

func TestSelectSingleCandidate(t *testing.T) {
	t.Parallel()
	s := NewSelector(logx.Nop())
	s.uniform = func() float64 {
		t.Fatal("uniform draw should not run for a single candidate")
		return 0
	}
	for i := 0; i < 5; i++ {
		got, ok := s.Select([]string{"only"}, 1.5)
		if !ok || got != "only" {
			t.Fatalf("Select = (%q, %v), want (\"only\", true)", got, ok)
		}
	}
}

func TestSelectEmptyList(t *testing.T) {
	t.Parallel()
	s := NewSelector(logx.Nop())
	if got, ok := s.Select(nil, 1.5); ok || got != "" {
		t.Fatalf("Select on empty list = (%q, %v), want (\"\", false)", got, ok)
	}
}

func TestSelectWeightedDraw(t *testing.T) {
	t.Parallel()
	ranked := []string{"A", "B", "C"}

	tests := []struct {
		name string
		u    float64
		want string
	}{
		// u=0.1 -> sample = -ln(0.9)/1.5 ~= 0.0702 -> floor(0.0702*3) = 0
		{name: "small draw picks front", u: 0.1, want: "A"},
		// u=0.99 -> sample ~= 3.07 -> index 9, clamped to last
		{name: "large draw clamps to last", u: 0.99, want: "C"},
		{name: "mid draw", u: 0.5, want: "B"}, // sample ~= 0.462 -> index 1
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(logx.Nop())
			s.uniform = func() float64 { return tt.u }
			got, ok := s.Select(ranked, 1.5)
			if !ok {
				t.Fatal("Select returned ok=false")
			}
			if got != tt.want {
				t.Fatalf("Select = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectFallbackOnBadLambda(t *testing.T) {
	t.Parallel()
	s := NewSelector(logx.Nop())
	s.uniform = func() float64 { return 0.1 }
	s.pick = func(n int) int { return n - 1 }
	got, ok := s.Select([]string{"A", "B", "C"}, 0)
	if !ok || got != "C" {
		t.Fatalf("Select with bad lambda = (%q, %v), want uniform fallback (\"C\", true)", got, ok)
	}
}

func TestExpovariateSample(t *testing.T) {
	t.Parallel()
	got, err := expovariate(1.5, func() float64 { return 0.1 })
	if err != nil {
		t.Fatalf("expovariate: %v", err)
	}
	want := -math.Log(0.9) / 1.5
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("sample = %v, want %v", got, want)
	}

	if _, err := expovariate(0, func() float64 { return 0.5 }); err == nil {
		t.Fatal("expected error for lambda <= 0")
	}
}

func TestExpovariateGuardsUnitDraw(t *testing.T) {
	t.Parallel()
	got, err := expovariate(1.5, func() float64 { return 1.0 })
	if err != nil {
		t.Fatalf("expovariate: %v", err)
	}
	if math.IsInf(got, 1) || math.IsNaN(got) {
		t.Fatalf("sample not finite: %v", got)
	}
}
