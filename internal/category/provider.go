package category

// Field describes one contract- or party-level field declared by a template
// category.
type Field struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

// Role is a named party slot (e.g. lessor/lessee) claimable by one identity.
type Role struct {
	Name               string
	Label              string
	DefaultPersonType  string
	AllowedPersonTypes []string
}

// PartyModule lists the fields required from a party of a given person type.
type PartyModule struct {
	Fields []Field
}

// Category groups templates and declares the parties and fields they share.
type Category struct {
	ID    string
	Label string

	Roles []Role

	// PartyModules maps person type (individual/fop/company) to its field set.
	PartyModules map[string]PartyModule

	ContractFields []Field
}

// Role returns the declared role with the given name.
func (c *Category) Role(name string) (Role, bool) {
	for _, r := range c.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// RoleNames returns the declared role names in declaration order.
func (c *Category) RoleNames() []string {
	names := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		names = append(names, r.Name)
	}
	return names
}

// ContractField returns the declared contract-level field with the given name.
func (c *Category) ContractField(name string) (Field, bool) {
	for _, f := range c.ContractFields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Template identifies one renderable document within a category.
type Template struct {
	ID         string
	CategoryID string
	Name       string
}

// Provider is the read-only category/template metadata source the core
// consults. It is authoritative for role sets, person types and field lists.
type Provider interface {
	Category(id string) (*Category, bool)
	TemplatesByCategory(categoryID string) []Template
}

// StaticProvider is an in-memory Provider for tests and single-binary
// deployments.
type StaticProvider struct {
	categories map[string]*Category
	templates  map[string][]Template
}

func NewStaticProvider(categories []*Category, templates []Template) *StaticProvider {
	p := &StaticProvider{
		categories: make(map[string]*Category, len(categories)),
		templates:  map[string][]Template{},
	}
	for _, c := range categories {
		p.categories[c.ID] = c
	}
	for _, t := range templates {
		p.templates[t.CategoryID] = append(p.templates[t.CategoryID], t)
	}
	return p
}

func (p *StaticProvider) Category(id string) (*Category, bool) {
	c, ok := p.categories[id]
	return c, ok
}

func (p *StaticProvider) TemplatesByCategory(categoryID string) []Template {
	return p.templates[categoryID]
}
