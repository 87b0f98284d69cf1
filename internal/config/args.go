package config

import (
	"regexp"
	"strings"
)

var (
	modulesArgRe = regexp.MustCompile(`--modules=([\w,]*)|--modules\s+\(\s*(.*?)\s*\)`)
	separatorRe  = regexp.MustCompile(`[:|,\s]+`)
)

// ParseModulesArg extracts the launch module list from command line
// arguments. Both --modules=A,B and --modules ( A:B ) are accepted; names
// may be separated by ':', '|', ',' or whitespace. When the option appears
// more than once the last occurrence wins. It returns nil when the option
// is absent or lists nothing.
func ParseModulesArg(args []string) []string {
	matches := modulesArgRe.FindAllStringSubmatch(strings.Join(args, " "), -1)
	if len(matches) == 0 {
		return nil
	}
	last := matches[len(matches)-1]
	value := last[1]
	if value == "" {
		value = last[2]
	}
	return splitNames(value, "")
}

// GUILogFile returns the value of the last --gui-log-file=<path> argument.
func GUILogFile(args []string) string {
	const prefix = "--gui-log-file="
	path := ""
	for _, arg := range args {
		if strings.HasPrefix(arg, prefix) {
			path = strings.TrimPrefix(arg, prefix)
		}
	}
	return path
}

// LaunchModules picks the launch list from, in order, the command line,
// the MODULES environment value and the catalog.
func LaunchModules(args []string, envModules string, catalog *Catalog) []string {
	if mods := ParseModulesArg(args); len(mods) > 0 {
		return mods
	}
	if mods := splitNames(envModules, ","); len(mods) > 0 {
		return mods
	}
	if catalog != nil {
		return append([]string(nil), catalog.Launch.Modules...)
	}
	return nil
}

// splitNames splits s on sep, or on any module separator when sep is
// empty, dropping blanks.
func splitNames(s, sep string) []string {
	var parts []string
	if sep == "" {
		parts = separatorRe.Split(s, -1)
	} else {
		parts = strings.Split(s, sep)
	}
	var names []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
