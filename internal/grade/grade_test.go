package grade

import (
	"math"
	"testing"
)

func TestTemperatureOf(t *testing.T) {
	tests := []struct {
		value float64
		want  int
	}{
		{0, 5500},
		{-10, 2700},
		{10, 8300},
		{1, 5780},
		{-2.5, 4800},
		{0.001, 5500},
	}

	for _, tt := range tests {
		if got := TemperatureOf(tt.value); got != tt.want {
			t.Errorf("TemperatureOf(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestBalanceFor(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		wantRed  float64
		wantBlue float64
	}{
		{"neutral", 0, 0, 0},
		{"warmest", -10, 2800.0 / 3100 * 0.3, -2800.0 / 3100 * 0.4},
		{"coolest", 10, -2800.0 / 2500 * 0.3, 2800.0 / 2500 * 0.4},
		{"slightly cool", 1, -280.0 / 2500 * 0.3, 280.0 / 2500 * 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BalanceFor(tt.value)
			if math.Abs(got.Red-tt.wantRed) > 1e-9 || math.Abs(got.Blue-tt.wantBlue) > 1e-9 {
				t.Errorf("BalanceFor(%v) = %+v, want {%v %v}", tt.value, got, tt.wantRed, tt.wantBlue)
			}
		})
	}
}

func TestBalanceIsNeutral(t *testing.T) {
	if !BalanceFor(0).IsNeutral() {
		t.Error("zero white balance should be neutral")
	}
	if !BalanceFor(0.001).IsNeutral() {
		t.Error("a value that rounds to 5500K should be neutral")
	}
	if BalanceFor(-1).IsNeutral() {
		t.Error("-1 should not be neutral")
	}
}

func TestConfigClamping(t *testing.T) {
	c := New().WithOpacity(1.7).WithWhiteBalance(-42)
	if c.Opacity() != 1 {
		t.Errorf("Opacity() = %v, want 1", c.Opacity())
	}
	if c.WhiteBalance() != MinWhiteBalance {
		t.Errorf("WhiteBalance() = %v, want %v", c.WhiteBalance(), MinWhiteBalance)
	}

	c = c.WithOpacity(-0.5).WithWhiteBalance(12)
	if c.Opacity() != 0 {
		t.Errorf("Opacity() = %v, want 0", c.Opacity())
	}
	if c.WhiteBalance() != MaxWhiteBalance {
		t.Errorf("WhiteBalance() = %v, want %v", c.WhiteBalance(), MaxWhiteBalance)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := New()
	if c.Opacity() != DefaultOpacity {
		t.Errorf("default opacity = %v, want %v", c.Opacity(), DefaultOpacity)
	}
	if c.HasPrimary() || c.HasBlend() {
		t.Error("a new config has no LUTs")
	}
}

func TestSecondaryRequiresPrimary(t *testing.T) {
	c := New().WithSecondaryLUT("/luts/creative.cube")
	if c.SecondaryLUT() != "" {
		t.Errorf("SecondaryLUT() = %q without a primary, want empty", c.SecondaryLUT())
	}
	if c.HasBlend() {
		t.Error("HasBlend() should be false without a primary")
	}

	c = c.WithPrimaryLUT("/luts/base.cube")
	if c.SecondaryLUT() != "/luts/creative.cube" {
		t.Errorf("SecondaryLUT() = %q, want the configured path", c.SecondaryLUT())
	}
	if !c.HasBlend() {
		t.Error("HasBlend() should be true with both LUTs")
	}
}

func TestConfigIsValueSnapshot(t *testing.T) {
	base := New().WithPrimaryLUT("/luts/a.cube")
	snapshot := base
	base = base.WithPrimaryLUT("/luts/b.cube")

	if snapshot.PrimaryLUT() != "/luts/a.cube" {
		t.Errorf("snapshot changed to %q", snapshot.PrimaryLUT())
	}
}
