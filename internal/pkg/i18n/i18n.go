package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var embedded embed.FS

const DefaultLocale = "en"

type Translations map[string]string

var (
	locales = make(map[string]Translations)
	mu      sync.RWMutex
)

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() error {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return err
	}
	return LoadTranslations(sub)
}

// LoadTranslations reads <locale>/errors.yaml for every locale directory in fsys.
func LoadTranslations(fsys fs.FS) error {
	mu.Lock()
	defer mu.Unlock()

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		locale := entry.Name()
		filePath := path.Join(locale, "errors.yaml")

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			continue
		}

		var catalog struct {
			Errors Translations `yaml:"ERRORS"`
		}
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}

		locales[locale] = catalog.Errors
	}

	return nil
}

func Translate(locale, key string) string {
	if val, ok := lookup(locale, key); ok {
		return val
	}
	return key
}

// TranslateOr returns fallback when no catalog knows key.
func TranslateOr(locale, key, fallback string) string {
	if val, ok := lookup(locale, key); ok {
		return val
	}
	return fallback
}

func lookup(locale, key string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()

	if trans, ok := locales[locale]; ok {
		if val, ok := trans[key]; ok {
			return val, true
		}
	}

	if locale != DefaultLocale {
		if trans, ok := locales[DefaultLocale]; ok {
			if val, ok := trans[key]; ok {
				return val, true
			}
		}
	}

	return "", false
}

// ParseLocale picks the primary language of the first Accept-Language entry.
func ParseLocale(acceptLanguage string) string {
	first, _, _ := strings.Cut(acceptLanguage, ",")
	first, _, _ = strings.Cut(first, ";")
	lang, _, _ := strings.Cut(strings.TrimSpace(first), "-")
	lang = strings.ToLower(lang)
	if lang == "" || lang == "*" {
		return DefaultLocale
	}
	return lang
}
