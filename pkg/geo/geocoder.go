package geo

import "strings"

const (
	defaultCountryCode = "us"
	unknownCity        = "Unknown"
)

// Geocoder resolves (city, country) pairs from a static table.
type Geocoder struct {
	table map[string]Point
}

var defaultCities = map[string]Point{
	placeKey("Accra", "Ghana"):               {Lat: 5.6037, Lng: -0.187},
	placeKey("Lagos", "Nigeria"):             {Lat: 6.5244, Lng: 3.3792},
	placeKey("New York", "USA"):              {Lat: 40.7128, Lng: -74.006},
	placeKey("London", "UK"):                 {Lat: 51.5074, Lng: -0.1278},
	placeKey("Toronto", "Canada"):            {Lat: 43.6532, Lng: -79.3832},
	placeKey("Nairobi", "Kenya"):             {Lat: -1.2921, Lng: 36.8219},
	placeKey("Cairo", "Egypt"):               {Lat: 30.0444, Lng: 31.2357},
	placeKey("Kampala", "Uganda"):            {Lat: 0.3476, Lng: 32.5825},
	placeKey("Dar es Salaam", "Tanzania"):    {Lat: -6.8, Lng: 39.2833},
	placeKey("Addis Ababa", "Ethiopia"):      {Lat: 9.032, Lng: 38.7469},
	placeKey("Johannesburg", "South Africa"): {Lat: -26.2041, Lng: 28.0473},
}

// NewGeocoder returns a geocoder over the built-in table plus extra entries keyed by city and country.
func NewGeocoder(extra map[[2]string]Point) *Geocoder {
	table := make(map[string]Point, len(defaultCities)+len(extra))
	for k, v := range defaultCities {
		table[k] = v
	}
	for k, v := range extra {
		table[placeKey(k[0], k[1])] = v
	}
	return &Geocoder{table: table}
}

// Resolve returns the coordinates of city, or Unknown when the pair is not in the table.
func (g *Geocoder) Resolve(city, country string) Point {
	if g == nil {
		return Unknown
	}
	if p, ok := g.table[placeKey(city, country)]; ok {
		return p
	}
	return Unknown
}

var countryCodes = map[string]string{
	"nigeria":        "ng",
	"ghana":          "gh",
	"usa":            "us",
	"united states":  "us",
	"uk":             "gb",
	"united kingdom": "gb",
	"canada":         "ca",
	"india":          "in",
	"australia":      "au",
	"germany":        "de",
	"france":         "fr",
	"japan":          "jp",
	"china":          "cn",
	"brazil":         "br",
	"mexico":         "mx",
	"south africa":   "za",
	"kenya":          "ke",
	"egypt":          "eg",
	"uganda":         "ug",
	"tanzania":       "tz",
	"ethiopia":       "et",
}

// CountryCode maps a country name to its two-letter news API code, defaulting to "us".
func CountryCode(country string) string {
	if code, ok := countryCodes[norm(country)]; ok {
		return code
	}
	return defaultCountryCode
}

var mainCities = map[string]string{
	"ghana":        "Accra",
	"nigeria":      "Lagos",
	"usa":          "New York",
	"uk":           "London",
	"canada":       "Toronto",
	"kenya":        "Nairobi",
	"south africa": "Johannesburg",
}

// MainCity returns the city scraped national sources are attributed to.
func MainCity(country string) string {
	if city, ok := mainCities[norm(country)]; ok {
		return city
	}
	return unknownCity
}

func placeKey(city, country string) string {
	return norm(city) + "|" + norm(country)
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
