package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestTranslator_Message(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	tests := []struct {
		name           string
		acceptLanguage string
		key            Key
		want           string
	}{
		{"no header", "", PostCreated, "Post created successfully"},
		{"english", "en-US,en;q=0.9", PostDeleted, "Post deleted successfully"},
		{"spanish", "es", PostCreated, "Publicación creada con éxito"},
		{"spanish region", "es-MX,es;q=0.8,en;q=0.5", PostsNotFoundForFilter, "No se encontraron publicaciones para los filtros indicados"},
		{"unsupported falls back to english", "de-DE", PostUpdated, "Post updated successfully"},
		{"quality ordering", "en;q=0.3,es;q=0.9", TriggerChecked, "Verificación de disparadores completada"},
		{"malformed header", ";;;", PostFetched, "Post fetched successfully"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Message(tt.acceptLanguage, tt.key))
		})
	}
}

func TestTranslator_FromRequest(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Accept-Language", "es")

	assert.Equal(t, "Filtros de calendario aplicados con éxito", tr.FromRequest(r, CalendarFiltersApplied))
}

func TestTranslations_Complete(t *testing.T) {
	english := translations[language.English]
	for tag, messages := range translations {
		for key := range english {
			assert.NotEmpty(t, messages[key], "missing %s translation for %s", tag, key)
		}
	}
}
