package timezone

// windowsToIANA maps Windows timezone display names, as emitted by
// Exchange and Outlook feeds, to IANA zone names. Entries follow the
// CLDR windowsZones mapping. The table is process-wide read-only data
// and must not be mutated at runtime.
var windowsToIANA = map[string]string{
	"Dateline Standard Time":          "Etc/GMT+12",
	"Hawaiian Standard Time":          "Pacific/Honolulu",
	"Alaskan Standard Time":           "America/Anchorage",
	"Pacific Standard Time":           "America/Los_Angeles",
	"Pacific Standard Time (Mexico)":  "America/Tijuana",
	"US Mountain Standard Time":       "America/Phoenix",
	"Mountain Standard Time":          "America/Denver",
	"Mountain Standard Time (Mexico)": "America/Mazatlan",
	"Central Standard Time":           "America/Chicago",
	"Central America Standard Time":   "America/Guatemala",
	"Central Standard Time (Mexico)":  "America/Mexico_City",
	"Canada Central Standard Time":    "America/Regina",
	"Eastern Standard Time":           "America/New_York",
	"US Eastern Standard Time":        "America/Indiana/Indianapolis",
	"SA Pacific Standard Time":        "America/Bogota",
	"Venezuela Standard Time":         "America/Caracas",
	"Atlantic Standard Time":          "America/Halifax",
	"SA Western Standard Time":        "America/La_Paz",
	"Newfoundland Standard Time":      "America/St_Johns",
	"E. South America Standard Time":  "America/Sao_Paulo",
	"Argentina Standard Time":         "America/Argentina/Buenos_Aires",
	"SA Eastern Standard Time":        "America/Cayenne",
	"Montevideo Standard Time":        "America/Montevideo",
	"Azores Standard Time":            "Atlantic/Azores",
	"Cape Verde Standard Time":        "Atlantic/Cape_Verde",
	"UTC":                             "Etc/UTC",
	"GMT Standard Time":               "Europe/London",
	"Greenwich Standard Time":         "Atlantic/Reykjavik",
	"W. Europe Standard Time":         "Europe/Berlin",
	"Central Europe Standard Time":    "Europe/Budapest",
	"Romance Standard Time":           "Europe/Paris",
	"Central European Standard Time":  "Europe/Warsaw",
	"W. Central Africa Standard Time": "Africa/Lagos",
	"GTB Standard Time":               "Europe/Bucharest",
	"Middle East Standard Time":       "Asia/Beirut",
	"Egypt Standard Time":             "Africa/Cairo",
	"E. Europe Standard Time":         "Europe/Chisinau",
	"South Africa Standard Time":      "Africa/Johannesburg",
	"FLE Standard Time":               "Europe/Kiev",
	"Turkey Standard Time":            "Europe/Istanbul",
	"Israel Standard Time":            "Asia/Jerusalem",
	"Arabic Standard Time":            "Asia/Baghdad",
	"Arab Standard Time":              "Asia/Riyadh",
	"Russian Standard Time":           "Europe/Moscow",
	"E. Africa Standard Time":         "Africa/Nairobi",
	"Iran Standard Time":              "Asia/Tehran",
	"Arabian Standard Time":           "Asia/Dubai",
	"Afghanistan Standard Time":       "Asia/Kabul",
	"West Asia Standard Time":         "Asia/Tashkent",
	"Pakistan Standard Time":          "Asia/Karachi",
	"India Standard Time":             "Asia/Kolkata",
	"Sri Lanka Standard Time":         "Asia/Colombo",
	"Nepal Standard Time":             "Asia/Kathmandu",
	"Central Asia Standard Time":      "Asia/Almaty",
	"Bangladesh Standard Time":        "Asia/Dhaka",
	"Myanmar Standard Time":           "Asia/Yangon",
	"SE Asia Standard Time":           "Asia/Bangkok",
	"China Standard Time":             "Asia/Shanghai",
	"North Asia Standard Time":        "Asia/Krasnoyarsk",
	"Singapore Standard Time":         "Asia/Singapore",
	"W. Australia Standard Time":      "Australia/Perth",
	"Taipei Standard Time":            "Asia/Taipei",
	"Ulaanbaatar Standard Time":       "Asia/Ulaanbaatar",
	"Tokyo Standard Time":             "Asia/Tokyo",
	"Korea Standard Time":             "Asia/Seoul",
	"Cen. Australia Standard Time":    "Australia/Adelaide",
	"AUS Central Standard Time":       "Australia/Darwin",
	"E. Australia Standard Time":      "Australia/Brisbane",
	"AUS Eastern Standard Time":       "Australia/Sydney",
	"West Pacific Standard Time":      "Pacific/Port_Moresby",
	"Tasmania Standard Time":          "Australia/Hobart",
	"Vladivostok Standard Time":       "Asia/Vladivostok",
	"Central Pacific Standard Time":   "Pacific/Guadalcanal",
	"New Zealand Standard Time":       "Pacific/Auckland",
	"Fiji Standard Time":              "Pacific/Fiji",
	"Tonga Standard Time":             "Pacific/Tongatapu",
	"Samoa Standard Time":             "Pacific/Apia",
}

// legacyAliases maps deprecated or colloquial zone spellings that still
// appear in calendar feeds to canonical IANA names. Same read-only
// contract as windowsToIANA.
var legacyAliases = map[string]string{
	"UTC":       "UTC",
	"GMT":       "UTC",
	"GMT0":      "UTC",
	"GMT+0":     "UTC",
	"GMT-0":     "UTC",
	"UT":        "UTC",
	"UCT":       "UTC",
	"Z":         "UTC",
	"Zulu":      "UTC",
	"Universal": "UTC",

	"US/Alaska":       "America/Anchorage",
	"US/Aleutian":     "America/Adak",
	"US/Arizona":      "America/Phoenix",
	"US/Central":      "America/Chicago",
	"US/East-Indiana": "America/Indiana/Indianapolis",
	"US/Eastern":      "America/New_York",
	"US/Hawaii":       "Pacific/Honolulu",
	"US/Michigan":     "America/Detroit",
	"US/Mountain":     "America/Denver",
	"US/Pacific":      "America/Los_Angeles",
	"US/Samoa":        "Pacific/Pago_Pago",

	"Canada/Atlantic":     "America/Halifax",
	"Canada/Central":      "America/Winnipeg",
	"Canada/Eastern":      "America/Toronto",
	"Canada/Mountain":     "America/Edmonton",
	"Canada/Newfoundland": "America/St_Johns",
	"Canada/Pacific":      "America/Vancouver",

	"PST8PDT": "America/Los_Angeles",
	"MST7MDT": "America/Denver",
	"CST6CDT": "America/Chicago",
	"EST5EDT": "America/New_York",

	// Bare US abbreviations show up in Outlook exports; they are
	// interpreted as the DST-aware zone, not the fixed offset.
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"EST": "America/New_York",
	"EDT": "America/New_York",
}
