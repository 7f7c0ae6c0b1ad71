package features

import "github.com/okian/myplaces/internal/domain/model"

// UnknownCategory is the code for a category outside the model vocabulary.
const UnknownCategory = -1.0

// categoryCodes is the closed OSM feature class vocabulary the relevance
// model was trained on.
var categoryCodes = map[string]float64{
	"airfield": 0, "airport": 1, "arts_centre": 2, "artwork": 3, "bakery": 4,
	"bar": 5, "beach": 6, "beauty_shop": 7, "beverages": 8, "bicycle_rental": 9,
	"bicycle_shop": 10, "biergarten": 11, "bookshop": 12, "bus_station": 13,
	"bus_stop": 14, "butcher": 15, "cafe": 16, "car_dealership": 17, "car_rental": 18,
	"chemist": 19, "cinema": 20, "clothes": 21, "community_centre": 22,
	"computer_shop": 23, "convenience": 24, "department_store": 25, "dog_park": 26,
	"doityourself": 27, "fast_food": 28, "ferry_terminal": 29, "florist": 30,
	"food_court": 31, "furniture_shop": 32, "garden_centre": 33, "gift_shop": 34,
	"greengrocer": 35, "hairdresser": 36, "helipad": 37, "jeweller": 38,
	"kiosk": 39, "laundry": 40, "mall": 41, "market_place": 42,
	"mobile_phone_shop": 43, "museum": 44, "newsagent": 45, "nightclub": 46,
	"optician": 47, "outdoor_shop": 48, "park": 49, "peak": 50,
	"picnic_site": 51, "pub": 52, "public_building": 53, "railway_halt": 54,
	"railway_station": 55, "restaurant": 56, "shoe_shop": 57, "sports_shop": 58,
	"spring": 59, "stationery": 60, "supermarket": 61, "taxi": 62,
	"theatre": 63, "theme_park": 64, "tourist_info": 65, "tower": 66,
	"town_hall": 67, "toy_shop": 68, "tram_stop": 69, "travel_agent": 70,
	"video_shop": 71, "viewpoint": 72, "wayside_shrine": 73, "zoo": 74,
}

// CategoryCode maps an OSM feature class to its model code.
func CategoryCode(category string) float64 {
	if code, ok := categoryCodes[category]; ok {
		return code
	}
	return UnknownCategory
}

// CategoryCount is the size of the category vocabulary.
func CategoryCount() int { return len(categoryCodes) }

// DefaultThemeCode is the code of the explore theme.
const DefaultThemeCode = 5.0

var themeCodes = map[string]float64{
	model.ThemeShopping:        0,
	model.ThemeFood:            1,
	model.ThemePublicTransport: 2,
	model.ThemeCulture:         3,
	model.ThemeOutdoor:         4,
	model.ThemeExplore:         5,
}

// ThemeCode maps a stored theme label to its model code. Nil or unknown
// labels map to explore.
func ThemeCode(theme *string) float64 {
	if theme == nil {
		return DefaultThemeCode
	}
	if code, ok := themeCodes[*theme]; ok {
		return code
	}
	return DefaultThemeCode
}

// IsKnownTheme reports whether label is one of the six theme labels.
func IsKnownTheme(label string) bool {
	_, ok := themeCodes[label]
	return ok
}
