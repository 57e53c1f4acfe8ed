// Package i18n provides localized response messages.
package i18n

import (
	"fmt"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a localized message.
type Key string

// Message keys.
const (
	PostCreated            Key = "post_created"
	PostUpdated            Key = "post_updated"
	PostDeleted            Key = "post_deleted"
	PostFetched            Key = "post_fetched"
	PostsFetched           Key = "posts_fetched"
	PostsNotFoundForFilter Key = "posts_not_found_for_filter"
	CalendarFiltersApplied Key = "calendar_filters_applied"
	TriggerChecked         Key = "trigger_checked"
)

var translations = map[language.Tag]map[Key]string{
	language.English: {
		PostCreated:            "Post created successfully",
		PostUpdated:            "Post updated successfully",
		PostDeleted:            "Post deleted successfully",
		PostFetched:            "Post fetched successfully",
		PostsFetched:           "Posts fetched successfully",
		PostsNotFoundForFilter: "No posts found for the given filters",
		CalendarFiltersApplied: "Calendar filters applied successfully",
		TriggerChecked:         "Trigger check completed",
	},
	language.Spanish: {
		PostCreated:            "Publicación creada con éxito",
		PostUpdated:            "Publicación actualizada con éxito",
		PostDeleted:            "Publicación eliminada con éxito",
		PostFetched:            "Publicación obtenida con éxito",
		PostsFetched:           "Publicaciones obtenidas con éxito",
		PostsNotFoundForFilter: "No se encontraron publicaciones para los filtros indicados",
		CalendarFiltersApplied: "Filtros de calendario aplicados con éxito",
		TriggerChecked:         "Verificación de disparadores completada",
	},
}

// Translator picks a message language from Accept-Language.
// English is the fallback.
type Translator struct {
	supported []language.Tag
	matcher   language.Matcher
	printers  []*message.Printer
}

// New creates a translator over the built-in catalog.
func New() (*Translator, error) {
	supported := []language.Tag{language.English, language.Spanish}

	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, tag := range supported {
		for key, msg := range translations[tag] {
			if err := builder.SetString(tag, string(key), msg); err != nil {
				return nil, fmt.Errorf("set %s message %s: %w", tag, key, err)
			}
		}
	}

	printers := make([]*message.Printer, len(supported))
	for i, tag := range supported {
		printers[i] = message.NewPrinter(tag, message.Catalog(builder))
	}

	return &Translator{
		supported: supported,
		matcher:   language.NewMatcher(supported),
		printers:  printers,
	}, nil
}

// Message returns the message for key in the best language for acceptLanguage.
func (t *Translator) Message(acceptLanguage string, key Key) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.printers[0].Sprintf(string(key))
	}
	_, index, _ := t.matcher.Match(tags...)
	return t.printers[index].Sprintf(string(key))
}

// FromRequest returns the message for key in the request's preferred language.
func (t *Translator) FromRequest(r *http.Request, key Key) string {
	return t.Message(r.Header.Get("Accept-Language"), key)
}
