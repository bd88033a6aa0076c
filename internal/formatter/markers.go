package formatter

import (
	"slices"
	"strings"
	"unicode"

	"github.com/jengzang/rond-timeline/internal/models"
)

const (
	visitMarkerPlain = "[visit]"
	moveMarkerPlain  = "[movement]"
	defaultVisitIcon = "📍"
)

type keywordRule struct {
	emoji    string
	keywords []string
}

var emojiByMode = map[models.TransportMode]string{
	models.TransportUnknown:       "🛣️",
	models.TransportWalk:          "🚶",
	models.TransportRun:           "🏃",
	models.TransportDrive:         "🚗",
	models.TransportPublicTransit: "🚇",
	models.TransportBike:          "🚴",
	models.TransportFlight:        "✈️",
}

// Transport names are free text, so a keyword hit beats the stored mode.
// Order matters: transit and bike rules run before the generic "车" rule.
var transportKeywords = []keywordRule{
	{"🚇", []string{"subway", "metro", "train", "tram", "rail", "railway", "bus", "ferry", "地铁", "电车", "高铁", "火车", "轻轨", "有轨", "公交", "巴士"}},
	{"🚶", []string{"walk", "walking", "步行"}},
	{"🏃", []string{"run", "running", "jog", "jogging", "跑"}},
	{"🚴", []string{"bike", "bicycle", "cycle", "cycling", "scooter", "骑", "单车", "自行车", "电瓶"}},
	{"✈️", []string{"flight", "plane", "airplane", "fly", "flying", "飞", "航班"}},
	{"🚗", []string{"car", "drive", "driving", "taxi", "cab", "motorcycle", "motorbike", "车", "驾"}},
}

// Rond location types: 0 is a point of interest, 1 a road.
var emojiByLocationType = map[int64]string{
	0: defaultVisitIcon,
	1: "🛣️",
}

var emojiByPOI = map[string]string{
	"MKPOICategoryAirport":         "🛫",
	"MKPOICategoryPublicTransport": "🚉",
	"MKPOICategoryRestaurant":      "🍽️",
	"MKPOICategoryCafe":            "☕",
	"MKPOICategoryBakery":          "🥐",
	"MKPOICategoryStore":           "🛍️",
	"MKPOICategoryFoodMarket":      "🛒",
	"MKPOICategoryHospital":        "🏥",
	"MKPOICategoryPharmacy":        "💊",
	"MKPOICategorySchool":          "🏫",
	"MKPOICategoryUniversity":      "🏫",
	"MKPOICategoryLibrary":         "📚",
	"MKPOICategoryMuseum":          "🏛️",
	"MKPOICategoryPark":            "🌳",
	"MKPOICategoryNationalPark":    "🏞️",
	"MKPOICategoryBeach":           "🏖️",
	"MKPOICategoryHotel":           "🏨",
	"MKPOICategoryFitnessCenter":   "🏋️",
	"MKPOICategoryStadium":         "🏟️",
	"MKPOICategoryMovieTheater":    "🎬",
	"MKPOICategoryTheater":         "🎭",
	"MKPOICategoryNightlife":       "🍸",
	"MKPOICategoryBrewery":         "🍺",
	"MKPOICategoryBank":            "🏦",
	"MKPOICategoryATM":             "🏧",
	"MKPOICategoryGasStation":      "⛽",
	"MKPOICategoryEVCharger":       "🔌",
	"MKPOICategoryParking":         "🅿️",
	"MKPOICategoryPostOffice":      "📮",
	"MKPOICategoryPolice":          "🚓",
	"MKPOICategoryZoo":             "🦁",
}

// user categories are matched whole
var emojiByCategory = map[string]string{
	"家":      "🏠",
	"home":   "🏠",
	"公司":     "🏢",
	"work":   "🏢",
	"office": "🏢",
}

var visitKeywords = []keywordRule{
	{"🛫", []string{"airport", "机场"}},
	{"🚉", []string{"station", "火车站", "高铁站", "地铁站", "车站"}},
	{"🏥", []string{"hospital", "clinic", "医院"}},
	{"🏫", []string{"school", "university", "campus", "学校", "大学"}},
	{"📚", []string{"library", "图书馆"}},
	{"🛍️", []string{"mall", "商场", "购物"}},
	{"🍽️", []string{"restaurant", "餐厅", "饭店"}},
	{"☕", []string{"cafe", "coffee", "咖啡"}},
	{"🌳", []string{"park", "公园"}},
	{"🏨", []string{"hotel", "酒店", "宾馆"}},
	{"🏋️", []string{"gym", "健身"}},
}

// visitMarker picks the visit icon. Each step refines the previous one:
// location type, then POI category, then the user category, then a keyword
// in the location name.
func visitMarker(v models.VisitEvent, emoji bool) string {
	if !emoji {
		return visitMarkerPlain
	}

	marker := defaultVisitIcon
	if v.LocationType != nil {
		if e, ok := emojiByLocationType[*v.LocationType]; ok {
			marker = e
		}
	}
	if v.POICategory != nil {
		if e, ok := emojiByPOI[*v.POICategory]; ok {
			marker = e
		}
	}
	if e, ok := emojiByCategory[strings.ToLower(strings.TrimSpace(v.CategoryName))]; ok {
		marker = e
	}
	if e, ok := matchKeywords(v.LocationName, visitKeywords); ok {
		marker = e
	}
	return marker
}

func movementMarker(m models.MovementEvent, emoji bool) string {
	if !emoji {
		return moveMarkerPlain
	}
	if e, ok := matchKeywords(m.TransportName, transportKeywords); ok {
		return e
	}
	if e, ok := emojiByMode[m.TransportMode]; ok {
		return e
	}
	return emojiByMode[models.TransportUnknown]
}

func matchKeywords(name string, rules []keywordRule) (string, bool) {
	lower := strings.ToLower(name)
	words := latinWords(lower)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if isLatin(kw) {
				if slices.Contains(words, kw) {
					return rule.emoji, true
				}
			} else if strings.Contains(lower, kw) {
				return rule.emoji, true
			}
		}
	}
	return "", false
}

// latinWords splits s into ASCII letter/digit runs, so "card" is not "car"
// and "Bike骑行" still yields "bike".
func latinWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
