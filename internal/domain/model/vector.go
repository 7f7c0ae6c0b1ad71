package model

// FeatureVectorLen is the number of inputs of the relevance model.
const FeatureVectorLen = 9

// FeatureVector is the relevance model input. Field order is part of the
// model contract.
type FeatureVector struct {
	DistanceKm      float64
	SpeedKmh        float64
	WeatherCategory float64
	IsOpen          float64
	IsFavorite      float64
	ClickCount      float64
	DaysSince       float64
	ThemeCode       float64
	CategoryCode    float64
}

// Values returns the vector in model order.
func (v FeatureVector) Values() [FeatureVectorLen]float64 {
	return [FeatureVectorLen]float64{
		v.DistanceKm,
		v.SpeedKmh,
		v.WeatherCategory,
		v.IsOpen,
		v.IsFavorite,
		v.ClickCount,
		v.DaysSince,
		v.ThemeCode,
		v.CategoryCode,
	}
}

// ThemeVector is the theme classifier input.
type ThemeVector struct {
	Hour        float64 // 0..23
	Weekday     float64 // Monday=0
	Environment float64 // urban=0, intermediate=1, rural=2
}

// Theme labels produced by the classifier.
const (
	ThemeShopping        = "shopping"
	ThemeFood            = "food"
	ThemePublicTransport = "public transport"
	ThemeCulture         = "culture"
	ThemeOutdoor         = "outdoor"
	ThemeExplore         = "explore"
)
