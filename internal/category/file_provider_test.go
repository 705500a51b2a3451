package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	writeCatalogFile(t, dir, "categories_index.json", `{
		"categories": [
			{"id": "rent", "label": "Оренда житла", "meta_filename": "rent_meta.json"},
			{"id": "broken", "label": "Без метаданих"}
		]
	}`)

	writeCatalogFile(t, dir, "rent_meta.json", `{
		"roles": {
			"lessor": {"label": "Орендодавець", "default_person_type": "individual", "allowed_person_types": ["individual", "company"]},
			"lessee": {"label": "Орендар", "allowed_person_types": ["individual"]}
		},
		"party_modules": {
			"individual": {"label": "Фізична особа", "fields": [
				{"field": "name", "label": "ПІБ"},
				{"field": "phone", "label": "Телефон", "required": false}
			]}
		},
		"contract_fields": [
			{"field": "rent_amount", "label": "Орендна плата", "type": "money"},
			{"field": "notes", "required": false}
		],
		"templates": [
			{"id": "rent_basic", "name": "Базовий договір"},
			{"id": "rent_extended"}
		]
	}`)

	provider, err := LoadDir(dir)
	require.NoError(t, err)

	cat, ok := provider.Category("rent")
	require.True(t, ok)
	assert.Equal(t, "Оренда житла", cat.Label)

	// Role map order is not defined in JSON; declaration order is sorted.
	assert.Equal(t, []string{"lessee", "lessor"}, cat.RoleNames())

	lessor, ok := cat.Role("lessor")
	require.True(t, ok)
	assert.Equal(t, "individual", lessor.DefaultPersonType)
	assert.Equal(t, []string{"individual", "company"}, lessor.AllowedPersonTypes)

	module := cat.PartyModules["individual"]
	require.Len(t, module.Fields, 2)
	assert.True(t, module.Fields[0].Required, "required defaults to true")
	assert.False(t, module.Fields[1].Required)

	amount, ok := cat.ContractField("rent_amount")
	require.True(t, ok)
	assert.Equal(t, "money", amount.Type)
	notes, ok := cat.ContractField("notes")
	require.True(t, ok)
	assert.Equal(t, "notes", notes.Label, "label falls back to the field name")

	templates := provider.TemplatesByCategory("rent")
	require.Len(t, templates, 2)
	assert.Equal(t, "Базовий договір", templates[0].Name)
	assert.Equal(t, "rent_extended", templates[1].Name, "name falls back to the id")

	// The category with a missing meta file is skipped, not fatal.
	_, ok = provider.Category("broken")
	assert.False(t, ok)
}

func TestLoadDirMissingIndex(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}
