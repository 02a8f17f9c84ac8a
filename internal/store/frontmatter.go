package store

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter reports a document that does not start with a `---` block.
var ErrNoFrontmatter = errors.New("no frontmatter")

// SplitFrontmatter separates a leading `---` delimited block from the rest
// of the document. The returned block excludes the delimiter lines.
func SplitFrontmatter(text string) (block string, body string, err error) {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, ErrNoFrontmatter
	}
	rest := strings.TrimPrefix(s, "---\n")
	if strings.HasPrefix(rest, "---\n") || rest == "---" {
		return "", strings.TrimPrefix(strings.TrimPrefix(rest, "---"), "\n"), nil
	}
	parts := strings.SplitN(rest, "\n---\n", 2)
	if len(parts) == 2 {
		return parts[0], parts[1], nil
	}
	if strings.HasSuffix(rest, "\n---") {
		return strings.TrimSuffix(rest, "\n---"), "", nil
	}
	return "", s, fmt.Errorf("%w: unterminated frontmatter", ErrInvalid)
}

// ParseFrontmatter decodes the leading annotation block into a key-value map.
// A block that is present but not a YAML mapping is reported as ErrInvalid.
func ParseFrontmatter(text string) (map[string]any, string, error) {
	block, body, err := SplitFrontmatter(text)
	if err != nil {
		return nil, body, err
	}
	meta := map[string]any{}
	if strings.TrimSpace(block) == "" {
		return meta, body, nil
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, body, fmt.Errorf("%w: frontmatter: %v", ErrInvalid, err)
	}
	return meta, body, nil
}

// FrontmatterBlock renders the minimal annotation block that declares a
// document as a board: the reserved key with the given variant tag.
func FrontmatterBlock(key string, value string) string {
	return strings.Join([]string{
		"---",
		"",
		fmt.Sprintf("%s: %s", key, value),
		"",
		"---",
		"",
		"",
	}, "\n")
}
