package store

import (
	"regexp"
	"strings"
	"unicode"
)

// tagPattern matches a #tag at the start of a word. Tags nest with '/'.
var tagPattern = regexp.MustCompile(`(?:^|[\s(\[,;])#([\p{L}\p{N}_/-]+)`)

var codeSpan = regexp.MustCompile("`[^`\n]*`")

// ExtractInlineTags returns the #tags in a board document or card, without
// the sigil and sorted. Fenced code, inline code and %% comments (which
// hold the board settings) are skipped. Card dates (@{...}) and times
// (@@{...}) are not tags, and neither are purely numeric tokens like #12.
func ExtractInlineTags(text string) []string {
	var tags []string
	var fence fenceState
	inComment := false
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if !inComment && fence.step(line) {
			continue
		}
		line, inComment = stripComments(line, inComment)
		line = codeSpan.ReplaceAllString(line, "")
		for _, m := range tagPattern.FindAllStringSubmatch(line, -1) {
			tag := strings.Trim(m[1], "/")
			if strings.IndexFunc(tag, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
				tags = append(tags, tag)
			}
		}
	}
	return dedupeStrings(tags)
}

// stripComments drops the parts of line inside %% ... %% and reports
// whether a comment is still open at the end of the line.
func stripComments(line string, inComment bool) (string, bool) {
	var sb strings.Builder
	for {
		i := strings.Index(line, "%%")
		if i < 0 {
			if !inComment {
				sb.WriteString(line)
			}
			return sb.String(), inComment
		}
		if !inComment {
			sb.WriteString(line[:i])
			sb.WriteByte(' ')
		}
		inComment = !inComment
		line = line[i+2:]
	}
}
