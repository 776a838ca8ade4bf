package face

import "testing"

func TestComputeLayout(t *testing.T) {
	tests := []struct {
		name           string
		ambient, round bool
		xTime, yTime   float64
		xHigh, yHigh   float64
		split, seconds bool
	}{
		{"interactive square", false, false, 48, 96, 64, 240, false, true},
		{"interactive round", false, true, 64, 96, 80, 240, false, true},
		{"ambient square", true, false, 48, 120, 192, 168, true, false},
		{"ambient round", true, true, 80, 120, 200, 168, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ComputeLayout(tt.ambient, tt.round)
			if l.XTime != tt.xTime || l.YTime != tt.yTime {
				t.Errorf("time offset: got (%v,%v), want (%v,%v)", l.XTime, l.YTime, tt.xTime, tt.yTime)
			}
			if l.XHighTemp != tt.xHigh || l.YHighTemp != tt.yHigh {
				t.Errorf("high offset: got (%v,%v), want (%v,%v)", l.XHighTemp, l.YHighTemp, tt.xHigh, tt.yHigh)
			}
			if l.SplitTime != tt.split {
				t.Errorf("SplitTime: got %v, want %v", l.SplitTime, tt.split)
			}
			if l.ShowSeconds != tt.seconds {
				t.Errorf("ShowSeconds: got %v, want %v", l.ShowSeconds, tt.seconds)
			}
			if l.ShowLowTemp == tt.ambient {
				t.Errorf("ShowLowTemp: got %v in ambient=%v", l.ShowLowTemp, tt.ambient)
			}
			if l.ShowIcon == tt.ambient {
				t.Errorf("ShowIcon: got %v in ambient=%v", l.ShowIcon, tt.ambient)
			}
		})
	}
}

func TestComputeStyle(t *testing.T) {
	tests := []struct {
		name            string
		ambient, lowBit bool
		timeSize        float64
		tempColor       string
		tempSize        float64
		wantAntiAlias   bool
	}{
		{"interactive", false, false, TimeTextSize, ColorSecondaryText, TempTextSize, true},
		{"interactive low bit", false, true, TimeTextSize, ColorSecondaryText, TempTextSize, true},
		{"ambient", true, false, TimeTextSizeAmbient, ColorPrimaryText, TimeTextSize, true},
		{"ambient low bit", true, true, TimeTextSizeAmbient, ColorPrimaryText, TimeTextSize, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeStyle(tt.ambient, tt.lowBit)
			if s.Time.Size != tt.timeSize {
				t.Errorf("time size: got %v, want %v", s.Time.Size, tt.timeSize)
			}
			if s.Time.Color != ColorPrimaryText {
				t.Errorf("time color: got %q, want %q", s.Time.Color, ColorPrimaryText)
			}
			if s.Temp.Color != tt.tempColor {
				t.Errorf("temp color: got %q, want %q", s.Temp.Color, tt.tempColor)
			}
			if s.Temp.Size != tt.tempSize {
				t.Errorf("temp size: got %v, want %v", s.Temp.Size, tt.tempSize)
			}
			if s.Time.AntiAlias != tt.wantAntiAlias || s.Temp.AntiAlias != tt.wantAntiAlias {
				t.Errorf("anti-alias: got (%v,%v), want %v", s.Time.AntiAlias, s.Temp.AntiAlias, tt.wantAntiAlias)
			}
		})
	}
}
