package settings

// Option is a selectable catalog entry.
type Option struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Language is a supported interface language.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

var Themes = []Option{
	{ID: "light", Name: "Light", Description: "Clean light theme"},
	{ID: "dark", Name: "Dark", Description: "Elegant dark theme"},
	{ID: "auto", Name: "Auto", Description: "Follow system preference"},
}

var Languages = []Language{
	{Code: "en", Name: "English", Native: "English"},
	{Code: "es", Name: "Spanish", Native: "Español"},
	{Code: "fr", Name: "French", Native: "Français"},
	{Code: "de", Name: "German", Native: "Deutsch"},
	{Code: "it", Name: "Italian", Native: "Italiano"},
	{Code: "pt", Name: "Portuguese", Native: "Português"},
	{Code: "ru", Name: "Russian", Native: "Русский"},
	{Code: "zh", Name: "Chinese", Native: "中文"},
	{Code: "ja", Name: "Japanese", Native: "日本語"},
	{Code: "ko", Name: "Korean", Native: "한국어"},
}

var Models = []Option{
	{ID: DefaultModelName, Name: DefaultModelName, Description: "Default ECHOAL model"},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Description: "Fast and efficient"},
	{ID: "gpt-4", Name: "GPT-4", Description: "Most capable model"},
	{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Description: "Latest GPT-4 model"},
}
