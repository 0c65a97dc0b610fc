// Package langmeta provides language display metadata (native names and
// emoji flags) for group labels in CLI output.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "العربية", Flag: "🇸🇦"},
	"as":    {Name: "অসমীয়া", Flag: "🇮🇳"},
	"bn":    {Name: "বাংলা", Flag: "🇧🇩"},
	"de":    {Name: "Deutsch", Flag: "🇩🇪"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"en-IN": {Name: "English (India)", Flag: "🇮🇳"},
	"es":    {Name: "Español", Flag: "🇪🇸"},
	"fr":    {Name: "Français", Flag: "🇫🇷"},
	"gu":    {Name: "ગુજરાતી", Flag: "🇮🇳"},
	"hi":    {Name: "हिन्दी", Flag: "🇮🇳"},
	"id":    {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":    {Name: "Italiano", Flag: "🇮🇹"},
	"ja":    {Name: "日本語", Flag: "🇯🇵"},
	"kn":    {Name: "ಕನ್ನಡ", Flag: "🇮🇳"},
	"ko":    {Name: "한국어", Flag: "🇰🇷"},
	"ml":    {Name: "മലയാളം", Flag: "🇮🇳"},
	"mr":    {Name: "मराठी", Flag: "🇮🇳"},
	"ne":    {Name: "नेपाली", Flag: "🇳🇵"},
	"or":    {Name: "ଓଡ଼ିଆ", Flag: "🇮🇳"},
	"pa":    {Name: "ਪੰਜਾਬੀ", Flag: "🇮🇳"},
	"pt":    {Name: "Português", Flag: "🇵🇹"},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"ru":    {Name: "Русский", Flag: "🇷🇺"},
	"si":    {Name: "සිංහල", Flag: "🇱🇰"},
	"ta":    {Name: "தமிழ்", Flag: "🇮🇳"},
	"te":    {Name: "తెలుగు", Flag: "🇮🇳"},
	"th":    {Name: "ไทย", Flag: "🇹🇭"},
	"tr":    {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":    {Name: "Українська", Flag: "🇺🇦"},
	"ur":    {Name: "اردو", Flag: "🇵🇰"},
	"vi":    {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":    {Name: "中文", Flag: "🇨🇳"},
	"zh-CN": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Flag: ""}
}

// Label formats a group code for display, e.g. "🇮🇳 hi (हिन्दी)".
// Unknown codes are returned unchanged.
func Label(lang string) string {
	m := Resolve(lang)
	if m.Name == lang {
		return lang
	}
	if m.Flag == "" {
		return lang + " (" + m.Name + ")"
	}
	return m.Flag + " " + lang + " (" + m.Name + ")"
}
