package face

// Colours used by the face.
const (
	ColorPrimaryText   = "#FFFFFF"
	ColorSecondaryText = "#B3E5FC"
	ColorAmbientBG     = "#000000"
)

// Text sizes in canvas pixels.
const (
	TimeTextSize        = 40
	TimeTextSizeAmbient = 64
	TempTextSize        = 28
)

// Paint describes how a text element is drawn.
type Paint struct {
	Color     string  `json:"color"`
	Size      float64 `json:"size"`
	AntiAlias bool    `json:"anti_alias"`
}

// Style is the pair of paints used for time and temperature text.
type Style struct {
	Time Paint
	Temp Paint
}

// ComputeStyle returns the paints for a mode. Anti-aliasing is dropped only
// in ambient mode on displays with reduced colour depth.
func ComputeStyle(ambient, lowBitAmbient bool) Style {
	antiAlias := !(ambient && lowBitAmbient)
	if ambient {
		return Style{
			Time: Paint{Color: ColorPrimaryText, Size: TimeTextSizeAmbient, AntiAlias: antiAlias},
			Temp: Paint{Color: ColorPrimaryText, Size: TimeTextSize, AntiAlias: antiAlias},
		}
	}
	return Style{
		Time: Paint{Color: ColorPrimaryText, Size: TimeTextSize, AntiAlias: antiAlias},
		Temp: Paint{Color: ColorSecondaryText, Size: TempTextSize, AntiAlias: antiAlias},
	}
}
