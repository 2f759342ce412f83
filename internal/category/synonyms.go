package category

import "strings"

// synonyms maps loose category names the model produces onto the canonical
// vocabulary. Keys are uppercase.
var synonyms = map[string]string{
	"ML":                      "AI",
	"MACHINE LEARNING":        "AI",
	"DEEP LEARNING":           "AI",
	"NEURAL NETWORKS":         "AI",
	"LLM":                     "AI",
	"LLMS":                    "AI",
	"ARTIFICIAL INTELLIGENCE": "AI",

	"WEB DEVELOPMENT": "WEB",
	"WEBDEV":          "WEB",
	"FRONTEND":        "WEB",
	"FRONT-END":       "WEB",
	"BACKEND":         "WEB",
	"BACK-END":        "WEB",

	"PROGRAMMING":          "DEV",
	"SOFTWARE":             "DEV",
	"SOFTWARE DEVELOPMENT": "DEV",
	"SOFTWARE ENGINEERING": "DEV",
	"CODING":               "DEV",

	"MOBILE DEVELOPMENT": "MOBILE",
	"IOS":                "MOBILE",
	"ANDROID":            "MOBILE",

	"CLOUD COMPUTING": "CLOUD",
	"AWS":             "CLOUD",
	"AZURE":           "CLOUD",
	"GCP":             "CLOUD",

	"CI/CD":          "DEVOPS",
	"INFRASTRUCTURE": "DEVOPS",
	"KUBERNETES":     "DEVOPS",
	"DOCKER":         "DEVOPS",

	"SECURITY":             "CYBERSECURITY",
	"INFOSEC":              "CYBERSECURITY",
	"CYBER SECURITY":       "CYBERSECURITY",
	"INFORMATION SECURITY": "CYBERSECURITY",

	"DATA SCIENCE":     "DATA",
	"BIG DATA":         "DATA",
	"DATA ENGINEERING": "DATA",
	"ANALYTICS":        "DATA",
	"DATABASES":        "DATA",

	"STARTUP":          "STARTUPS",
	"VENTURE CAPITAL":  "STARTUPS",
	"ENTREPRENEURSHIP": "STARTUPS",
	"FUNDING":          "STARTUPS",

	"TECH NEWS":     "NEWS",
	"TECHNOLOGY":    "NEWS",
	"INDUSTRY NEWS": "NEWS",

	"OTHER":         "GENERAL",
	"MISC":          "GENERAL",
	"MISCELLANEOUS": "GENERAL",
	"UNCATEGORIZED": "GENERAL",
}

// Canonicalize maps a raw category name onto the canonical vocabulary. Unknown
// names pass through trimmed and uppercased.
func Canonicalize(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}

	if canonical, ok := synonyms[name]; ok {
		return canonical
	}

	return name
}
