// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package geocode

import "context"

// Component is one address component of a geocoding result.
type Component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Result is one candidate address for a reverse-geocoded coordinate.
// Providers return results ordered most-specific first.
type Result struct {
	AddressComponents []Component `json:"address_components"`
	FormattedAddress  string      `json:"formatted_address"`
}

// Provider resolves a coordinate to candidate addresses. An empty
// result slice with a nil error means the coordinate matched nothing.
type Provider interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) ([]Result, error)
}

// Place is the structured location extracted from a result set.
type Place struct {
	City        string
	State       string
	Country     string
	CountryCode string

	// Label is the display string: "City, StateCode" for domestic
	// places, "City, CountryName" otherwise. Empty when the result set
	// held nothing usable.
	Label string
}

// cityTypes are the component types accepted as a city, in preference
// order. Sparse rural results often carry only the coarser levels.
var cityTypes = []string{
	"locality",
	"postal_town",
	"administrative_area_level_3",
	"administrative_area_level_2",
	"sublocality",
}

// DerivePlace extracts the city, state, and country from a result set
// and formats the display label. Parts accumulate across results: the
// first city, first state, and first country win independently, so a
// city from one result can pair with a country from another.
func DerivePlace(results []Result, domesticCountry string) Place {
	var p Place
	if len(results) == 0 {
		return p
	}

	var stateShort string
	for _, result := range results {
		if p.City == "" {
			if c := findComponent(result.AddressComponents, cityTypes...); c != nil {
				p.City = pick(c.LongName, c.ShortName)
			}
		}
		if stateShort == "" {
			if c := findComponent(result.AddressComponents, "administrative_area_level_1"); c != nil {
				stateShort = c.ShortName
				p.State = c.ShortName
			}
		}
		if p.CountryCode == "" {
			if c := findComponent(result.AddressComponents, "country"); c != nil {
				p.CountryCode = c.ShortName
				p.Country = c.LongName
			}
		}
		if p.City != "" && stateShort != "" && p.CountryCode != "" {
			break
		}
	}

	switch {
	case p.City == "":
		p.Label = results[0].FormattedAddress
	case p.CountryCode == domesticCountry && stateShort != "":
		p.Label = p.City + ", " + stateShort
	case p.CountryCode != domesticCountry && p.Country != "":
		p.Label = p.City + ", " + p.Country
	default:
		p.Label = p.City
	}
	return p
}

// findComponent returns the first component matching any of the given
// types, honoring the preference order of the types list.
func findComponent(components []Component, types ...string) *Component {
	for _, t := range types {
		for i := range components {
			for _, ct := range components[i].Types {
				if ct == t {
					return &components[i]
				}
			}
		}
	}
	return nil
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
