package face

import (
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/sweeney/weather-sync/internal/weather"
)

// Bounds is the size of the drawing area.
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Element kinds.
const (
	KindText = "text"
	KindIcon = "icon"
)

// Element is one drawn item.
type Element struct {
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	Text  string  `json:"text,omitempty"`
	Icon  string  `json:"icon,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Paint *Paint  `json:"paint,omitempty"`
}

// Frame is the description of one redraw.
type Frame struct {
	Time       time.Time `json:"time"`
	Mode       string    `json:"mode"`
	Bounds     Bounds    `json:"bounds"`
	Background string    `json:"background"`
	Elements   []Element `json:"elements"`
}

// Text returns the text of the named element, or "".
func (f Frame) Text(name string) string {
	for _, e := range f.Elements {
		if e.Name == name {
			return e.Text
		}
	}
	return ""
}

// Has reports whether the frame contains the named element.
func (f Frame) Has(name string) bool {
	for _, e := range f.Elements {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Background colours by time of day.
const (
	ColorNight = "#263238"
	ColorDawn  = "#FFB74D"
	ColorDay   = "#03A9F4"
	ColorDusk  = "#FF7043"
)

// twilight is how long dawn and dusk last around sunrise and sunset.
const twilight = time.Hour

// Coordinates locate the display for sunrise and sunset.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// BackgroundColor picks the interactive background for t. Without
// coordinates, or where the sun does not rise or set that day, fixed hour
// bands are used.
func BackgroundColor(t time.Time, coords *Coordinates) string {
	if coords != nil {
		rise, set := sunrise.SunriseSunset(coords.Latitude, coords.Longitude, t.Year(), t.Month(), t.Day())
		if !rise.IsZero() && !set.IsZero() {
			switch {
			case t.Before(rise.Add(-twilight)) || !t.Before(set.Add(twilight)):
				return ColorNight
			case t.Before(rise.Add(twilight)):
				return ColorDawn
			case t.Before(set.Add(-twilight)):
				return ColorDay
			default:
				return ColorDusk
			}
		}
	}
	switch h := t.Hour(); {
	case h >= 5 && h < 7:
		return ColorDawn
	case h >= 7 && h < 18:
		return ColorDay
	case h >= 18 && h < 20:
		return ColorDusk
	default:
		return ColorNight
	}
}

// drawOptions are the engine settings that affect drawing.
type drawOptions struct {
	use24Hour bool
	coords    *Coordinates
}

// render builds a frame from display state. now must already be in the
// display's time zone.
func render(st DisplayState, now time.Time, bounds Bounds, opts drawOptions) Frame {
	layout := ComputeLayout(st.Ambient, st.Round)
	style := ComputeStyle(st.Ambient, st.LowBitAmbient)

	f := Frame{Time: now, Mode: st.Mode().String(), Bounds: bounds}

	hour := now.Hour()
	if !opts.use24Hour {
		hour %= 12
		if hour == 0 {
			hour = 12
		}
	}

	if st.Ambient {
		f.Background = ColorAmbientBG
	} else {
		f.Background = BackgroundColor(now, opts.coords)
	}
	if layout.ShowIcon {
		f.Elements = append(f.Elements, Element{
			Kind: KindIcon, Name: "icon", Icon: st.Icon, X: layout.XIcon, Y: layout.YIcon,
		})
	}

	high := weather.FormatTemp(st.Snapshot.High)
	if layout.SplitTime {
		f.Elements = append(f.Elements,
			textElement("hour", fmt.Sprintf("%02d", hour), layout.XTime, layout.YTime, style.Time),
			textElement("minute", fmt.Sprintf("%02d", now.Minute()), layout.XTime, layout.YMinute, style.Time),
		)
	} else {
		text := fmt.Sprintf("%02d:%02d", hour, now.Minute())
		if layout.ShowSeconds {
			text = fmt.Sprintf("%s:%02d", text, now.Second())
		}
		f.Elements = append(f.Elements, textElement("time", text, layout.XTime, layout.YTime, style.Time))
	}

	if layout.ShowLowTemp {
		low := weather.FormatTemp(st.Snapshot.Low)
		f.Elements = append(f.Elements, textElement("low", low, layout.XLowTemp, layout.YLowTemp, style.Temp))
	}
	// Interactive mode draws the high temperature with the time paint.
	highPaint := style.Time
	if st.Ambient {
		highPaint = style.Temp
	}
	f.Elements = append(f.Elements, textElement("high", high, layout.XHighTemp, layout.YHighTemp, highPaint))
	return f
}

func textElement(name, text string, x, y float64, p Paint) Element {
	return Element{Kind: KindText, Name: name, Text: text, X: x, Y: y, Paint: &p}
}
