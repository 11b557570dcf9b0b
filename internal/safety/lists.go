package safety

// defaultLists returns the compiled-in phrase lists. Deployments override
// these with wordlist files; see Watch.
func defaultLists() map[Category][]string {
	return map[Category][]string{
		CategoryPrivacy: {
			"my address is",
			"my phone number",
			"my credit card",
			"my social security",
			"my password",
			"my bank account",
		},
		CategorySensitivity: {
			"who did you vote",
			"vote for",
			"abortion",
			"religion",
			"political party",
			"are you a democrat",
			"are you a republican",
		},
		CategoryOffensive: {
			"fuck",
			"shit",
			"bitch",
			"asshole",
			"bastard",
			"cunt",
			"dickhead",
			"slut",
			"whore",
		},
		CategorySuicide: {
			"kill myself",
			"suicide",
			"end my life",
			"hurt myself",
			"want to die",
			"take my own life",
			"self harm",
		},
	}
}
