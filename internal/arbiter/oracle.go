package arbiter

import (
	"math"
	"regexp"
	"strings"

	"github.com/amirbrooks/boardmode/internal/metacache"
)

type AnnotationSource interface {
	GetCache(path string) (*metacache.Annotations, bool)
}

type DocumentReader interface {
	Read(path string) (string, error)
}

// Oracle answers whether a document declares itself a board. It never
// fails: anything it cannot establish counts as "no".
type Oracle struct {
	cache AnnotationSource
	docs  DocumentReader
}

func NewOracle(cache AnnotationSource, docs DocumentReader) *Oracle {
	return &Oracle{cache: cache, docs: docs}
}

// DeclaresStructured consults the annotation cache only.
func (o *Oracle) DeclaresStructured(path string) bool {
	if o.cache == nil {
		return false
	}
	a, ok := o.cache.GetCache(path)
	if !ok || a == nil || a.Malformed || a.Frontmatter == nil {
		return false
	}
	return truthy(a.Frontmatter[FrontmatterKey])
}

// Declared uses the cache once the document is indexed and reads the raw
// text otherwise, e.g. right after the document was created.
func (o *Oracle) Declared(path string) bool {
	if o.cache != nil {
		if _, ok := o.cache.GetCache(path); ok {
			return o.DeclaresStructured(path)
		}
	}
	if o.docs == nil {
		return false
	}
	text, err := o.docs.Read(path)
	if err != nil {
		return false
	}
	return DeclaresStructuredRaw(text)
}

var frontmatterRaw = regexp.MustCompile(`\A---\r?\n(?s:(.*?))\r?\n---(?:\r?\n|\z)`)

// DeclaresStructuredRaw looks for the board key inside a leading `---`
// delimited block of unparsed text.
func DeclaresStructuredRaw(text string) bool {
	m := frontmatterRaw.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	return strings.Contains(m[1], FrontmatterKey)
}

// truthy follows YAML scalar decoding: missing, null, false, zero and the
// empty string are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	default:
		return true
	}
}
