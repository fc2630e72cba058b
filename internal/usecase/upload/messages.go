package upload

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"github.com/kailas-cloud/scbir/internal/domain"
)

// Key identifies a user-facing message.
type Key int

// Message keys.
const (
	MsgIndexingRequired Key = iota
	MsgConnection
	MsgGeneric
	MsgNoResults
	MsgResultCount
	MsgClear
	MsgSearching
)

var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[Key]string{
	language.Spanish: {
		MsgIndexingRequired: "El sistema no esta indexado. Ejecuta la indexacion primero.",
		MsgConnection:       "No se pudo conectar con el servidor. Asegurate de que este corriendo.",
		MsgGeneric:          "Error al buscar huellas similares. Intenta de nuevo.",
		MsgNoResults:        "No se encontraron resultados similares.",
		MsgResultCount:      "%d resultados",
		MsgClear:            "Limpiar resultados",
		MsgSearching:        "Buscando huellas similares...",
	},
	language.English: {
		MsgIndexingRequired: "The system is not indexed. Run the indexing first.",
		MsgConnection:       "Could not connect to the server. Make sure it is running.",
		MsgGeneric:          "Error searching for similar fingerprints. Try again.",
		MsgNoResults:        "No similar results found.",
		MsgResultCount:      "%d results",
		MsgClear:            "Clear results",
		MsgSearching:        "Searching for similar fingerprints...",
	},
}

// Messages renders user-facing text in one language.
type Messages struct {
	tag   language.Tag
	table map[Key]string
}

// NewMessages picks the best supported language for the given locales.
// Unknown or empty locales fall back to Spanish.
func NewMessages(locales ...string) Messages {
	var tags []language.Tag
	for _, l := range locales {
		if t, err := language.Parse(l); err == nil {
			tags = append(tags, t)
		}
	}
	return forTags(tags)
}

// NewMessagesFromAccept picks a language from an Accept-Language header,
// using fallback when the header names nothing supported.
func NewMessagesFromAccept(header string, fallback Messages) Messages {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, _, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return forTags(tags)
}

func forTags(tags []language.Tag) Messages {
	idx := 0
	if len(tags) > 0 {
		_, i, conf := matcher.Match(tags...)
		if conf != language.No {
			idx = i
		}
	}
	tag := supported[idx]
	return Messages{tag: tag, table: catalog[tag]}
}

// Tag returns the selected language.
func (m Messages) Tag() language.Tag {
	if m.table == nil {
		return language.Spanish
	}
	return m.tag
}

// Get returns the message for k.
func (m Messages) Get(k Key) string {
	table := m.table
	if table == nil {
		table = catalog[language.Spanish]
	}
	return table[k]
}

// ResultCount renders the result counter shown above the grid.
func (m Messages) ResultCount(n int) string {
	return fmt.Sprintf(m.Get(MsgResultCount), n)
}

// ForError maps a search failure to the message shown to the user.
func (m Messages) ForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNotReady), errors.Is(err, domain.ErrSystemNotIndexed):
		return m.Get(MsgIndexingRequired)
	case errors.Is(err, domain.ErrConnectivity):
		return m.Get(MsgConnection)
	default:
		return m.Get(MsgGeneric)
	}
}
