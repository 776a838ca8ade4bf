package weather

// Art resource names for condition classes.
const (
	ArtClear       = "art_clear"
	ArtLightClouds = "art_light_clouds"
	ArtClouds      = "art_clouds"
	ArtFog         = "art_fog"
	ArtLightRain   = "art_light_rain"
	ArtRain        = "art_rain"
	ArtSnow        = "art_snow"
	ArtStorm       = "art_storm"
)

// ArtForCondition returns the art for a condition id. Unknown ids return
// false so the caller can keep whatever it showed before.
func ArtForCondition(id int) (string, bool) {
	switch {
	case id >= 200 && id <= 232:
		return ArtStorm, true
	case id >= 300 && id <= 321:
		return ArtLightRain, true
	case id >= 500 && id <= 504:
		return ArtRain, true
	case id == 511:
		return ArtSnow, true
	case id >= 520 && id <= 531:
		return ArtRain, true
	case id >= 600 && id <= 622:
		return ArtSnow, true
	case id == 761 || id == 781:
		return ArtStorm, true
	case id >= 701 && id <= 761:
		return ArtFog, true
	case id == 800:
		return ArtClear, true
	case id == 801:
		return ArtLightClouds, true
	case id >= 802 && id <= 804:
		return ArtClouds, true
	}
	return "", false
}

// wmoConditions maps WMO weather interpretation codes (as returned by
// Open-Meteo) onto the condition id space used on the wire.
var wmoConditions = map[int]int{
	0:  800,
	1:  801,
	2:  802,
	3:  804,
	45: 741,
	48: 741,
	51: 300,
	53: 301,
	55: 302,
	56: 511,
	57: 511,
	61: 500,
	63: 501,
	65: 502,
	66: 511,
	67: 511,
	71: 600,
	73: 601,
	75: 602,
	77: 611,
	80: 520,
	81: 521,
	82: 522,
	85: 620,
	86: 622,
	95: 211,
	96: 202,
	99: 202,
}

// ConditionFromWMO converts a WMO weather code. Unknown codes return false.
func ConditionFromWMO(code int) (int, bool) {
	id, ok := wmoConditions[code]
	return id, ok
}
