package sensing

// Weather categories.
const (
	WeatherSunny  = 1.0
	WeatherCloudy = 2.0
	WeatherWet    = 3.0 // rain, snow, storm
)

// Environment classes.
const (
	EnvironmentUrban        = 0.0
	EnvironmentIntermediate = 1.0
	EnvironmentRural        = 2.0
)

// Environment layer labels.
const (
	LabelUrban        = "Städtisch (1)"
	LabelIntermediate = "Intermediär (2)"
	LabelRural        = "Ländlich (3)"
)

// WeatherCategory maps a WMO weather interpretation code.
func WeatherCategory(code int) float64 {
	switch {
	case code == 0 || code == 1:
		return WeatherSunny
	case code == 2 || code == 3:
		return WeatherCloudy
	case code >= 51 && code <= 67, code >= 80 && code <= 99:
		return WeatherWet
	default:
		return WeatherCloudy
	}
}

// EnvironmentClass maps an environment layer label.
func EnvironmentClass(label string) float64 {
	switch label {
	case LabelUrban:
		return EnvironmentUrban
	case LabelIntermediate:
		return EnvironmentIntermediate
	case LabelRural:
		return EnvironmentRural
	default:
		return EnvironmentIntermediate
	}
}
