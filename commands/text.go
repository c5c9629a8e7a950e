package commands

import "strings"

// indentation is the indentation of example lines in help text.
const indentation = `  `

// LongDesc trims a command's long description.
func LongDesc(s string) string {
	return strings.TrimSpace(dedent(s))
}

// Examples trims a command's examples and indents every line.
func Examples(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indentation + strings.TrimSpace(line)
	}

	return strings.Join(lines, "\n")
}

// dedent strips leading whitespace from every line, keeping blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t")
	}

	return strings.Join(lines, "\n")
}
