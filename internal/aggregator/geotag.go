package aggregator

import (
	"strings"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/pkg/geo"
)

// Resolver maps a place to coordinates; unknown places resolve to geo.Unknown.
type Resolver interface {
	Resolve(city, country string) geo.Point
}

// geotag stamps every article with the coordinates of its own city and country.
// Articles without a city are attributed to fallbackCity. Unknown places stay unresolved.
func geotag(articles []domain.Article, r Resolver, fallbackCity, country string) {
	for i := range articles {
		a := &articles[i]
		if strings.TrimSpace(a.City) == "" {
			a.City = fallbackCity
		}
		if strings.TrimSpace(a.Country) == "" {
			a.Country = country
		}
		p := r.Resolve(a.City, a.Country)
		a.SetCoordinates(p.Lat, p.Lng)
	}
}
