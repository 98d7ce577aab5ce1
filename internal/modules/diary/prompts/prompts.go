package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

type Name string

const (
	AnalyzeEntry    Name = "analyze_entry"
	DailyReflection Name = "daily_reflection"
)

//go:embed prompts.yaml
var embeddedPrompts []byte

type yamlCatalog struct {
	Version int                   `yaml:"version"`
	Prompts map[string]yamlPrompt `yaml:"prompts"`
}

type yamlPrompt struct {
	Version    int    `yaml:"version"`
	SchemaName string `yaml:"schema_name"`
	System     string `yaml:"system"`
	User       string `yaml:"user"`
}

type Template struct {
	Name       Name
	Version    int
	SchemaName string
	system     *template.Template
	user       *template.Template
}

// Render returns the system and user messages for in.
func (t Template) Render(in any) (string, string, error) {
	var sys, usr bytes.Buffer
	if err := t.system.Execute(&sys, in); err != nil {
		return "", "", fmt.Errorf("%s system render: %w", t.Name, err)
	}
	if err := t.user.Execute(&usr, in); err != nil {
		return "", "", fmt.Errorf("%s user render: %w", t.Name, err)
	}
	return strings.TrimSpace(sys.String()), strings.TrimSpace(usr.String()), nil
}

type Catalog struct {
	templates map[Name]Template
}

func (c *Catalog) Get(name Name) (Template, error) {
	t, ok := c.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("prompt %q not registered", name)
	}
	return t, nil
}

// Load parses the catalogue from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := embeddedPrompts
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var raw yamlCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	c := &Catalog{templates: map[Name]Template{}}
	for key, p := range raw.Prompts {
		name := Name(key)
		if p.Version <= 0 {
			return nil, fmt.Errorf("invalid version for %s", name)
		}
		sysT, err := template.New(key + ".system").Option("missingkey=zero").Parse(p.System)
		if err != nil {
			return nil, fmt.Errorf("%s system template parse: %w", name, err)
		}
		userT, err := template.New(key + ".user").Option("missingkey=zero").Parse(p.User)
		if err != nil {
			return nil, fmt.Errorf("%s user template parse: %w", name, err)
		}
		c.templates[name] = Template{
			Name:       name,
			Version:    p.Version,
			SchemaName: p.SchemaName,
			system:     sysT,
			user:       userT,
		}
	}
	for _, required := range []Name{AnalyzeEntry, DailyReflection} {
		if _, ok := c.templates[required]; !ok {
			return nil, fmt.Errorf("prompt catalogue missing %q", required)
		}
	}
	if t := c.templates[AnalyzeEntry]; t.SchemaName == "" {
		return nil, fmt.Errorf("missing schema name for %s", AnalyzeEntry)
	}
	return c, nil
}
