package face

// Reference canvas the layout offsets are expressed in.
const (
	CanvasWidth  = 320
	CanvasHeight = 320
)

// Layout holds element positions for one (ambient, round) combination.
type Layout struct {
	XTime       float64
	YTime       float64
	YMinute     float64 // second time row, ambient only
	XIcon       float64
	YIcon       float64
	XLowTemp    float64
	YLowTemp    float64
	XHighTemp   float64
	YHighTemp   float64
	ShowSeconds bool
	ShowLowTemp bool
	ShowIcon    bool
	SplitTime   bool // hour and minute on separate rows
}

type layoutKey struct{ ambient, round bool }

var layouts = map[layoutKey]Layout{
	{ambient: false, round: false}: {
		XTime: 48, YTime: 96,
		XIcon: 128, YIcon: 128,
		XLowTemp: 208, YLowTemp: 240,
		XHighTemp: 64, YHighTemp: 240,
		ShowSeconds: true, ShowLowTemp: true, ShowIcon: true,
	},
	{ambient: false, round: true}: {
		XTime: 64, YTime: 96,
		XIcon: 136, YIcon: 128,
		XLowTemp: 200, YLowTemp: 240,
		XHighTemp: 80, YHighTemp: 240,
		ShowSeconds: true, ShowLowTemp: true, ShowIcon: true,
	},
	{ambient: true, round: false}: {
		XTime: 48, YTime: 120, YMinute: 216,
		XIcon: 128, YIcon: 128,
		XLowTemp: 208, YLowTemp: 240,
		XHighTemp: 192, YHighTemp: 168,
		SplitTime: true,
	},
	{ambient: true, round: true}: {
		XTime: 80, YTime: 120, YMinute: 216,
		XIcon: 136, YIcon: 128,
		XLowTemp: 200, YLowTemp: 240,
		XHighTemp: 200, YHighTemp: 168,
		SplitTime: true,
	},
}

// ComputeLayout returns the fixed layout for a mode and display shape.
func ComputeLayout(ambient, round bool) Layout {
	return layouts[layoutKey{ambient: ambient, round: round}]
}
