// Package naming converts the dialect's snake_case identifiers into the
// conventions of the individual targets.
package naming

import "strings"

// Camel converts snake_case to camelCase: total_supply -> totalSupply.
// Predicate names lose their trailing question mark.
func Camel(name string) string {
	return join(split(name), false)
}

// Pascal converts snake_case to PascalCase: my_token -> MyToken.
func Pascal(name string) string {
	return join(split(name), true)
}

// Snake strips the decorations a target cannot carry (the predicate
// question mark) but keeps underscores: valid_vote? -> valid_vote.
func Snake(name string) string {
	return strings.TrimSuffix(name, "?")
}

func split(name string) []string {
	name = strings.TrimSuffix(name, "?")
	parts := strings.Split(name, "_")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func join(parts []string, capFirst bool) string {
	var b strings.Builder
	for i, p := range parts {
		if i == 0 && !capFirst {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
