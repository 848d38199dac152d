package shaders

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spaghettifunk/lumen/engine/core"
)

const maxIncludeDepth = 32

var includeDirective = regexp.MustCompile(`^\s*#include\s+"([a-zA-Z0-9\-\./_]+)"`)

// includes lists the paths named by #include directives in source.
func includes(source string) []string {
	var out []string
	for _, line := range strings.Split(source, "\n") {
		if m := includeDirective.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

/**
 * @brief Expands #include directives recursively. Each file gets its own
 * source string number, recorded in sources, and #line directives keep
 * compiler diagnostics pointing at the right file and line.
 * @param source The text of the file with source string number self.
 * @param self Index of the file in sources.
 * @param sources File names; included files are appended.
 * @param load Returns the text of an included file.
 * @param depth Current include depth.
 */
func preprocess(source string, self int, sources *[]string, load func(string) (string, error), depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("%s: %w", (*sources)[self], core.ErrIncludeDepth)
	}
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		m := includeDirective.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := m[1]
		text, err := load(path)
		if err != nil {
			return "", fmt.Errorf("%s:%d: include %q: %w", (*sources)[self], i+1, path, err)
		}
		*sources = append(*sources, path)
		expanded, err := preprocess(text, len(*sources)-1, sources, load, depth+1)
		if err != nil {
			return "", err
		}
		lines[i] = fmt.Sprintf("%s\n#line %d %d", expanded, i+2, self)
	}
	lines[0] = fmt.Sprintf("#line 1 %d\n%s", self, lines[0])
	return strings.Join(lines, "\n"), nil
}
