package domain

import "fmt"

// ThemePreferenceKey is the preference key for the display theme.
const ThemePreferenceKey = "warphunt-theme"

// Theme is the display theme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultTheme is used when nothing has been stored yet.
const DefaultTheme = ThemeDark

// ParseTheme validates a stored or submitted theme value.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Toggled returns the opposite theme.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
