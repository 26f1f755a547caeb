package web

// Language describes one supported voice language.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

// Languages is the catalogue served on /api/voice/languages. Every
// entry is supported end to end: transcription, generation, and
// synthesis.
var Languages = []Language{
	{Code: "hi-IN", Name: "Hindi", Native: "हिन्दी"},
	{Code: "en-IN", Name: "English", Native: "English"},
	{Code: "bn-IN", Name: "Bengali", Native: "বাংলা"},
	{Code: "mr-IN", Name: "Marathi", Native: "मराठी"},
	{Code: "ta-IN", Name: "Tamil", Native: "தமிழ்"},
	{Code: "te-IN", Name: "Telugu", Native: "తెలుగు"},
}

// SupportedLanguage reports whether code is in the catalogue.
func SupportedLanguage(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}
