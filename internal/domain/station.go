package domain

// cityStations is the fixed bijection between serviced cities and the WMO
// codes of the weather stations observed for them.
var cityStations = map[City]int{
	CityTallinn: 26038, // Tallinn-Harku
	CityTartu:   26242, // Tartu-Tõravere
	CityParnu:   41803, // Pärnu
}

// StationWMO returns the WMO code of the weather station observed for the
// city, or 0 for an unknown city.
func StationWMO(c City) int {
	return cityStations[c]
}

// StationWMOs returns the WMO codes of all stations the importer tracks.
func StationWMOs() []int {
	codes := make([]int, 0, len(cityStations))
	for _, city := range Cities {
		codes = append(codes, cityStations[city])
	}
	return codes
}

// CityOfStation returns the city a station reports for, or CityUnknown.
func CityOfStation(wmo int) City {
	for city, code := range cityStations {
		if code == wmo {
			return city
		}
	}
	return CityUnknown
}
