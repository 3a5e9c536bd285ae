package localization_test

import (
	"civicwatch/backend/internal/localization"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocale(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLocalizer_Fallbacks(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"hello": "Hello", "only_en": "English only"}`)
	writeLocale(t, dir, "uk.json", `{"hello": "Привіт"}`)
	writeLocale(t, dir, "README.txt", `ignored`)

	l, err := localization.NewLocalizer(dir)
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "hello"))
	assert.Equal(t, "English only", l.GetString("uk", "only_en"), "missing key falls back to English")
	assert.Equal(t, "Hello", l.GetString("de", "hello"), "unknown language falls back to English")
	assert.Equal(t, "missing", l.GetString("en", "missing"), "unknown key returns the key")
	assert.ElementsMatch(t, []string{"en", "uk"}, l.Languages())
	assert.True(t, l.HasLanguage("uk"))
	assert.False(t, l.HasLanguage("de"))
}

func TestLocalizer_Format(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"count": "%d items for %s"}`)

	l, err := localization.NewLocalizer(dir)
	require.NoError(t, err)

	assert.Equal(t, "3 items for Kyiv", l.Format("en", "count", 3, "Kyiv"))
}

func TestLocalizer_Errors(t *testing.T) {
	_, err := localization.NewLocalizer(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{not json`)
	_, err = localization.NewLocalizer(dir)
	assert.Error(t, err)
}

// TestShippedLocales keeps the bundled translations loadable and in sync.
func TestShippedLocales(t *testing.T) {
	l, err := localization.NewLocalizer("locales")
	require.NoError(t, err)

	for _, key := range []string{"welcome", "complaint_created", "status_changed", "status_reply", "status_solved"} {
		for _, lang := range []string{"en", "uk"} {
			assert.NotEqual(t, key, l.GetString(lang, key), "%s/%s", lang, key)
		}
	}
}
