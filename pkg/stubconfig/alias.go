package stubconfig

import "strings"

// ParseAliasFlag parses a repeatable "--alias" flag value of the form
// `name 'abbrev one' abbrev-two` into a command name and its list of
// extra abbreviations, using shell-like quoting so an abbreviation can
// contain spaces. It merges into an existing Aliases map.
func ParseAliasFlag(aliases map[string][]string, spec string) map[string][]string {
	fields := SplitQuotedFields(spec, '\'')
	if len(fields) < 2 {
		return aliases
	}
	if aliases == nil {
		aliases = make(map[string][]string)
	}
	name := fields[0]
	aliases[name] = append(aliases[name], fields[1:]...)
	return aliases
}

// FormatAliases renders a Config's Aliases map back to `--alias`-style
// strings.
func FormatAliases(aliases map[string][]string) []string {
	out := make([]string, 0, len(aliases))
	for name, abbrevs := range aliases {
		out = append(out, name+" "+strings.Join(abbrevs, " "))
	}
	return out
}
