package category

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Catalog layout on disk: a categories_index.json naming each category and
// its meta file, plus one meta JSON per category describing roles, party
// modules, contract fields and templates.

type indexFile struct {
	Categories []indexEntry `json:"categories"`
}

type indexEntry struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	MetaFilename string `json:"meta_filename"`
}

type metaFile struct {
	Roles          map[string]metaRole        `json:"roles"`
	PartyModules   map[string]metaPartyModule `json:"party_modules"`
	ContractFields []metaField                `json:"contract_fields"`
	Templates      []metaTemplate             `json:"templates"`
}

type metaRole struct {
	Label              string   `json:"label"`
	DefaultPersonType  string   `json:"default_person_type"`
	AllowedPersonTypes []string `json:"allowed_person_types"`
}

type metaPartyModule struct {
	Label  string      `json:"label"`
	Fields []metaField `json:"fields"`
}

type metaField struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required *bool  `json:"required"`
}

type metaTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoadDir reads a catalog directory and returns a provider backed by its
// contents. Categories whose meta file is missing or malformed are skipped
// with a warning rather than failing the whole catalog.
func LoadDir(dir string) (*StaticProvider, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "categories_index.json"))
	if err != nil {
		return nil, errors.Wrap(err, "read categories index")
	}

	var index indexFile
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, errors.Wrap(err, "parse categories index")
	}

	var categories []*Category
	var templates []Template
	for _, entry := range index.Categories {
		metaName := entry.MetaFilename
		if metaName == "" {
			metaName = entry.ID + ".json"
		}
		cat, tmpls, err := loadMeta(filepath.Join(dir, metaName), entry)
		if err != nil {
			log.Warn().Err(err).Str("category_id", entry.ID).Msg("Skipping category with unreadable meta")
			continue
		}
		categories = append(categories, cat)
		templates = append(templates, tmpls...)
	}

	return NewStaticProvider(categories, templates), nil
}

func loadMeta(path string, entry indexEntry) (*Category, []Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read category meta")
	}

	var meta metaFile
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, errors.Wrap(err, "parse category meta")
	}

	cat := &Category{
		ID:           entry.ID,
		Label:        entry.Label,
		PartyModules: map[string]PartyModule{},
	}

	// Role maps carry no order in JSON, keep them sorted for stable
	// RequiredRoles and RoleNames output.
	roleNames := make([]string, 0, len(meta.Roles))
	for name := range meta.Roles {
		roleNames = append(roleNames, name)
	}
	sort.Strings(roleNames)
	for _, name := range roleNames {
		r := meta.Roles[name]
		cat.Roles = append(cat.Roles, Role{
			Name:               name,
			Label:              r.Label,
			DefaultPersonType:  r.DefaultPersonType,
			AllowedPersonTypes: r.AllowedPersonTypes,
		})
	}

	for personType, module := range meta.PartyModules {
		cat.PartyModules[personType] = PartyModule{Fields: convertFields(module.Fields)}
	}

	cat.ContractFields = convertFields(meta.ContractFields)

	templates := make([]Template, 0, len(meta.Templates))
	for _, t := range meta.Templates {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		templates = append(templates, Template{ID: t.ID, CategoryID: entry.ID, Name: name})
	}

	return cat, templates, nil
}

func convertFields(in []metaField) []Field {
	out := make([]Field, 0, len(in))
	for _, f := range in {
		label := f.Label
		if label == "" {
			label = f.Field
		}
		required := true
		if f.Required != nil {
			required = *f.Required
		}
		out = append(out, Field{
			Name:     f.Field,
			Label:    label,
			Type:     f.Type,
			Required: required,
		})
	}
	return out
}
