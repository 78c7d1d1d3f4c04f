// Package i18n loads the embedded locale catalogs and turns them into translators.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is the last locale tried before falling back to the key itself.
const DefaultLocale = "en-US"

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator renders key with {{name}} placeholders replaced from params.
type Translator func(key string, params map[string]any) string

// Catalog holds flattened messages per locale ("prompt.expired" -> text).
type Catalog struct {
	messages map[string]map[string]string
	fallback string
}

var (
	loadOnce    sync.Once
	embedded    *Catalog
	loadErr     error
	placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)
)

// Default returns the catalog built from the embedded locale files.
func Default() (*Catalog, error) {
	loadOnce.Do(func() {
		embedded, loadErr = load(DefaultLocale)
	})
	return embedded, loadErr
}

// MustDefault is Default for callers that cannot proceed without translations.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func load(fallback string) (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	c := &Catalog{messages: make(map[string]map[string]string), fallback: fallback}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		if err := c.Add(strings.TrimSuffix(e.Name(), ".yaml"), data); err != nil {
			return nil, err
		}
	}
	if _, ok := c.messages[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q missing", fallback)
	}
	return c, nil
}

// NewCatalog builds an empty catalog, mostly for tests.
func NewCatalog(fallback string) *Catalog {
	return &Catalog{messages: make(map[string]map[string]string), fallback: fallback}
}

// Add merges a YAML document into locale.
func (c *Catalog) Add(locale string, data []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse locale %s: %w", locale, err)
	}
	dst := c.messages[locale]
	if dst == nil {
		dst = make(map[string]string)
		c.messages[locale] = dst
	}
	flatten("", tree, dst)
	return nil
}

func flatten(prefix string, node map[string]any, dst map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, dst)
		case string:
			dst[key] = val
		default:
			dst[key] = fmt.Sprint(val)
		}
	}
}

// Locales lists the loaded locales, sorted.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether locale has its own catalog.
func (c *Catalog) Supports(locale string) bool {
	_, ok := c.messages[locale]
	return ok
}

// Lookup returns the raw message, trying locale, then its base language, then the fallback.
func (c *Catalog) Lookup(locale, key string) (string, bool) {
	for _, l := range c.chain(locale) {
		if msg, ok := c.messages[l][key]; ok {
			return msg, true
		}
	}
	return "", false
}

// chain is locale, its bare base language, the first sibling sharing that base, then the
// fallback.
func (c *Catalog) chain(locale string) []string {
	out := make([]string, 0, 4)
	if locale != "" {
		out = append(out, locale)
		base, _, _ := strings.Cut(locale, "-")
		if base != locale {
			out = append(out, base)
		}
		for _, l := range c.Locales() {
			if strings.HasPrefix(l, base+"-") && l != locale {
				out = append(out, l)
				break
			}
		}
	}
	return append(out, c.fallback)
}

// Translator returns a translator bound to locale. Missing keys render as the key itself.
func (c *Catalog) Translator(locale string) Translator {
	return func(key string, params map[string]any) string {
		msg, ok := c.Lookup(locale, key)
		if !ok {
			return key
		}
		return Format(msg, params)
	}
}

// Format substitutes {{name}} placeholders. Unknown placeholders are left untouched.
func Format(msg string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(msg, "{{") {
		return msg
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

// Resolve picks the first supported locale among candidates, or the fallback.
func (c *Catalog) Resolve(candidates ...string) string {
	for _, l := range candidates {
		if l != "" && c.Supports(l) {
			return l
		}
	}
	return c.fallback
}
