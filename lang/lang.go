package lang

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yml
var defaultCatalog []byte

// Catalog holds the messages of one language. Keys missing from a custom
// catalog file fall back to the embedded one.
type Catalog struct {
	language string
	messages map[string]string
}

// Default returns the embedded catalog in the given language, or in its
// active_language when language is empty.
func Default(language string) (*Catalog, error) {
	return parse(defaultCatalog, language, nil)
}

// Load reads a YAML catalog from path and overlays it on the embedded
// defaults. An empty path yields the defaults.
func Load(path, language string) (*Catalog, error) {
	if path == "" {
		return Default(language)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if language == "" {
		language, _ = raw["active_language"].(string)
	}
	base, err := Default(language)
	if err != nil {
		return nil, err
	}
	return parse(data, base.language, base.messages)
}

func parse(data []byte, language string, base map[string]string) (*Catalog, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if language == "" {
		if v, ok := raw["active_language"].(string); ok && v != "" {
			language = v
		} else {
			language = "en"
		}
	}

	m := make(map[string]string, len(base))
	for k, v := range base {
		m[k] = v
	}

	block, ok := raw[language]
	if !ok {
		if base == nil {
			return nil, fmt.Errorf("language %q not found", language)
		}
		return &Catalog{language: language, messages: m}, nil
	}
	blockMap, ok := block.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("language block %q is not a map", language)
	}
	for k, v := range blockMap {
		if s, ok := v.(string); ok {
			m[k] = s
		}
	}
	return &Catalog{language: language, messages: m}, nil
}

func (c *Catalog) Language() string { return c.language }

// T returns the message for key with {name} placeholders replaced from
// name/value pairs. Unknown keys render as {key}.
func (c *Catalog) T(key string, pairs ...string) string {
	s, ok := c.messages[key]
	if !ok {
		return "{" + key + "}"
	}
	for j := 0; j+1 < len(pairs); j += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[j]+"}", pairs[j+1])
	}
	return s
}
