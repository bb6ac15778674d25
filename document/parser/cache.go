package parser

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/c360studio/speclint/document"
)

// cacheKey identifies a parse by content hash, language, and kind. Block
// trees are never mutated after parsing, so sharing them across callers is
// safe.
type cacheKey struct {
	hash [sha256.Size]byte
	lang document.Language
	kind document.DocumentKind
}

// Cache memoizes parses of identical content. Watch and server modes re-read
// the same trio of files on every run; the cache makes those re-validations
// cheap without changing parse semantics.
type Cache struct {
	parser *Parser
	lru    *lru.Cache[cacheKey, *document.Document]
}

// NewCache wraps p with an LRU memo of at most size parsed documents.
func NewCache(p *Parser, size int) (*Cache, error) {
	l, err := lru.New[cacheKey, *document.Document](size)
	if err != nil {
		return nil, err
	}
	return &Cache{parser: p, lru: l}, nil
}

// Parse returns the cached tree for identical content, language, and kind,
// or parses and caches it. Language detection runs before keying so auto and
// the detected language share an entry.
func (c *Cache) Parse(markdownText string, lang document.Language, kind document.DocumentKind) (*document.Document, error) {
	if lang == document.LanguageAuto || lang == "" {
		lang = DetectLanguage(markdownText)
	}

	key := cacheKey{
		hash: sha256.Sum256([]byte(markdownText)),
		lang: lang,
		kind: kind,
	}
	if doc, ok := c.lru.Get(key); ok {
		return doc, nil
	}

	doc, err := c.parser.Parse(markdownText, lang, kind)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, doc)
	return doc, nil
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops all cached documents.
func (c *Cache) Purge() {
	c.lru.Purge()
}
