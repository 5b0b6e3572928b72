// Package states holds the jurisdiction tables the disclosure portals
// accept. The House search covers territories and the district; the
// Senate seats only the 50 states.
package states

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut",
	"DE": "Delaware", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan",
	"MN": "Minnesota", "MS": "Mississippi", "MO": "Missouri",
	"MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota",
	"OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin",
	"WY": "Wyoming",
}

var territoryNames = map[string]string{
	"DC": "District of Columbia",
	"PR": "Puerto Rico",
	"GU": "Guam",
	"VI": "Virgin Islands",
	"AS": "American Samoa",
	"MP": "Northern Mariana Islands",
}

// ValidHouse reports whether code is a jurisdiction that elects a House
// member or delegate.
func ValidHouse(code string) bool {
	if _, ok := stateNames[code]; ok {
		return true
	}
	_, ok := territoryNames[code]
	return ok
}

// ValidSenate reports whether code is one of the 50 states. DC and the
// territories have no senators.
func ValidSenate(code string) bool {
	_, ok := stateNames[code]
	return ok
}

// Name returns the full name for a state or territory code, or "".
func Name(code string) string {
	if name, ok := stateNames[code]; ok {
		return name
	}
	return territoryNames[code]
}
