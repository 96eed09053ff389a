package schemas

// EmergencyContact is one entry in the crisis hotline directory.
type EmergencyContact struct {
	Number    string `json:"number"`
	Name      string `json:"name"`
	Available string `json:"available"`
}

// DefaultEmergencyContacts is the built-in hotline directory. It is the safe
// fallback served whenever no backing configuration is present, so the
// endpoint can never dead-end a caller.
func DefaultEmergencyContacts() map[string]EmergencyContact {
	return map[string]EmergencyContact{
		"national_crisis_line": {
			Number:    "1-800-273-8255",
			Name:      "National Suicide Prevention Lifeline",
			Available: "24/7",
		},
		"crisis_text_line": {
			Number:    "741741",
			Name:      "Crisis Text Line",
			Available: "24/7",
		},
		"emergency": {
			Number:    "911",
			Name:      "Emergency Services",
			Available: "24/7",
		},
		"veterans_crisis_line": {
			Number:    "1-800-273-8255",
			Name:      "Veterans Crisis Line",
			Available: "24/7",
		},
		"trevor_project": {
			Number:    "1-866-488-7386",
			Name:      "The Trevor Project (LGBTQ+)",
			Available: "24/7",
		},
	}
}
