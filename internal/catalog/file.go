package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var moduleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

var definitionValidate *validator.Validate

func init() {
	definitionValidate = validator.New()
	_ = definitionValidate.RegisterValidation("moduleid", func(fl validator.FieldLevel) bool {
		return moduleIDPattern.MatchString(fl.Field().String())
	})
}

// fileDefinition mirrors Definition with id syntax checks layered on top.
type fileDefinition struct {
	Modules          []string          `yaml:"modules" validate:"required,min=1,dive,moduleid"`
	MultiStageModule string            `yaml:"multi_stage_module" validate:"required,moduleid"`
	Optional         []fileFeatureRule `yaml:"optional" validate:"dive"`
	Cross            []fileGroupRule   `yaml:"cross" validate:"dive"`
	Shared           []fileGroupRule   `yaml:"shared" validate:"dive"`
}

type fileFeatureRule struct {
	Feature string   `yaml:"feature" validate:"required"`
	Modules []string `yaml:"modules" validate:"required,min=1,dive,moduleid"`
}

type fileGroupRule struct {
	Features []string `yaml:"features" validate:"required,min=2,unique,dive,required"`
	Modules  []string `yaml:"modules" validate:"required,min=1,dive,moduleid"`
}

// ParseDefinitionYAML decodes and validates a catalog document. Unknown keys
// are rejected.
func ParseDefinitionYAML(data []byte) (Definition, error) {
	var raw fileDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return Definition{}, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	if err := definitionValidate.Struct(raw); err != nil {
		return Definition{}, fmt.Errorf("catalog: %w", describeValidation(err))
	}
	def := Definition{
		Modules:          raw.Modules,
		MultiStageModule: raw.MultiStageModule,
	}
	for _, rule := range raw.Optional {
		def.Optional = append(def.Optional, FeatureRule{Feature: strings.TrimSpace(rule.Feature), Modules: rule.Modules})
	}
	for _, rule := range raw.Cross {
		def.Cross = append(def.Cross, GroupRule{Features: rule.Features, Modules: rule.Modules})
	}
	for _, rule := range raw.Shared {
		def.Shared = append(def.Shared, GroupRule{Features: rule.Features, Modules: rule.Modules})
	}
	return def, nil
}

// Parse decodes a catalog document and runs the integrity check.
func Parse(data []byte) (*Catalog, error) {
	def, err := ParseDefinitionYAML(data)
	if err != nil {
		return nil, err
	}
	return New(def)
}

// LoadFile reads a catalog document from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// MarshalYAML renders the catalog in the format LoadFile reads.
func (c *Catalog) MarshalYAML() (any, error) {
	return c.Definition(), nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New("invalid definition: " + strings.Join(parts, "; "))
}
