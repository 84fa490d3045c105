package drills

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// translationEntry is one row of the embedded translations file.
type translationEntry struct {
	Language    string `json:"language"`
	Label       string `json:"label"`
	Translation string `json:"translation"`
}

type translationFile struct {
	Instructions []translationEntry `json:"instructions"`
}

var (
	localizeMu      sync.RWMutex
	localizeCatalog *catalog.Builder
	localizeMatcher language.Matcher
	localizeTags    []language.Tag
)

// token matches {{label}} placeholders in drill copy.
var token = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// maxLocalizePasses bounds nested token resolution (translations may embed
// further tokens, e.g. a corrected-answer template embedding the answer).
const maxLocalizePasses = 3

// LoadTranslations registers translation entries into the process-wide
// message catalog. It replaces any previously loaded table.
func LoadTranslations(raw []byte) error {
	var file translationFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode translations: %w", err)
	}

	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	seen := map[language.Tag]bool{}
	var tags []language.Tag
	for _, entry := range file.Instructions {
		tag, err := language.Parse(entry.Language)
		if err != nil {
			return fmt.Errorf("parse translation language %q: %w", entry.Language, err)
		}
		if err := builder.SetString(tag, entry.Label, entry.Translation); err != nil {
			return fmt.Errorf("register translation %q/%q: %w", entry.Language, entry.Label, err)
		}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return fmt.Errorf("translations file has no entries")
	}

	localizeMu.Lock()
	defer localizeMu.Unlock()
	localizeCatalog = builder
	localizeTags = tags
	localizeMatcher = language.NewMatcher(tags)
	return nil
}

// Localize resolves {{label}} tokens in text for the given language. Args
// take precedence over translation labels; unresolved tokens keep their
// label text so missing translations stay visible instead of vanishing.
func Localize(text, lang string, args map[string]string) string {
	printer := printerFor(lang)

	result := text
	for pass := 0; pass < maxLocalizePasses; pass++ {
		replaced := token.ReplaceAllStringFunc(result, func(match string) string {
			label := token.FindStringSubmatch(match)[1]
			if value, ok := args[label]; ok {
				return value
			}
			if printer == nil {
				return label
			}
			translated := printer.Sprintf(label)
			if translated == label {
				return label
			}
			return translated
		})
		if replaced == result {
			break
		}
		result = replaced
	}
	return result
}

func printerFor(lang string) *message.Printer {
	localizeMu.RLock()
	defer localizeMu.RUnlock()
	if localizeCatalog == nil {
		return nil
	}
	if lang == "" {
		lang = "en"
	}
	desired, err := language.Parse(lang)
	if err != nil {
		desired = language.English
	}
	_, idx, _ := localizeMatcher.Match(desired)
	return message.NewPrinter(localizeTags[idx], message.Catalog(localizeCatalog))
}
