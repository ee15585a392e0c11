// Package config loads and writes the .decoreg.yaml project file.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/toejough/decoreg"
	"github.com/toejough/decoreg/jsast"
)

// Exported constants.
const (
	// FileName is the default config file, relative to the project root.
	FileName = ".decoreg.yaml"
)

// Exported variables.
var (
	// ErrInvalid reports a config file that does not match the schema.
	ErrInvalid = errors.New("invalid config")
)

// File is the decoded config file.
type File struct {
	Annotation string   `yaml:"annotation,omitempty"`
	Naming     string   `yaml:"naming,omitempty"`
	Imports    []Import `yaml:"imports,omitempty"`
	Include    []string `yaml:"include,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty"`
}

// Import is one entry of the imports list.
type Import struct {
	ImportName string `yaml:"importName"`
	Source     string `yaml:"source"`
}

// Issue is a single schema violation.
type Issue struct {
	Path    string
	Message string
	Keyword string
}

// Reader reads whole files.
type Reader interface {
	ReadFile(name string) ([]byte, error)
}

// Default returns the config used when no file exists.
func Default() *File {
	imports := make([]Import, 0, 2) //nolint:mnd // registrar and storage
	for _, spec := range decoreg.DefaultImports() {
		imports = append(imports, Import{ImportName: spec.LogicalName, Source: spec.ModulePath})
	}

	return &File{
		Annotation: decoreg.DefaultAnnotation,
		Naming:     jsast.NamingPlain.String(),
		Imports:    imports,
		Include:    []string{"**/*.{js,mjs,jsx}"},
		Exclude:    []string{"**/node_modules/**"},
	}
}

// Load reads path through r. A missing file yields Default and found=false.
func Load(r Reader, path string) (file *File, found bool, err error) {
	data, err := r.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	file, err = Parse(data)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}

	return file, true, nil
}

// Parse validates data against the config schema and decodes it. Keys the file leaves out keep
// their Default values.
func Parse(data []byte) (*File, error) {
	issues, err := Validate(data)
	if err != nil {
		return nil, err
	}

	if len(issues) > 0 {
		lines := make([]string, 0, len(issues))
		for _, issue := range issues {
			lines = append(lines, issue.String())
		}

		return nil, fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(lines, "\n"))
	}

	file := Default()

	err = yaml.Unmarshal(data, file)
	if err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	return file, nil
}

// Validate checks YAML data against the embedded schema. The error return is for data that is
// not YAML at all; schema violations come back as issues.
func Validate(data []byte) ([]Issue, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	var raw any

	err = yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	if raw == nil {
		raw = map[string]any{}
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting to json: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing json for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, fmt.Errorf("unexpected validation error: %w", err)
	}

	var issues []Issue

	collectIssues(validationErr, &issues)

	if len(issues) == 0 {
		issues = append(issues, Issue{Message: validationErr.Error()})
	}

	return issues, nil
}

// Encode renders f as YAML.
func (f *File) Encode() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd

	err := enc.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return buf.Bytes(), nil
}

// PassConfig converts f into the configuration of a registration pass.
func (f *File) PassConfig() (decoreg.Config, error) {
	naming, err := jsast.ParseNamingStyle(f.Naming)
	if err != nil {
		return decoreg.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	imports := make([]decoreg.ImportSpec, 0, len(f.Imports))
	for _, imp := range f.Imports {
		imports = append(imports, decoreg.ImportSpec{LogicalName: imp.ImportName, ModulePath: imp.Source})
	}

	return decoreg.Config{Annotation: f.Annotation, Imports: imports, Naming: naming}, nil
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "/"
	}

	return path + ": " + i.Message
}

// unexported constants.
const (
	schemaName = "config.schema.json"
)

// unexported variables.
var (
	//nolint:gochecknoglobals // compiled once per process
	compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			return nil, fmt.Errorf("unmarshaling schema: %w", err)
		}

		compiler := jsonschema.NewCompiler()

		err = compiler.AddResource(schemaName, doc)
		if err != nil {
			return nil, fmt.Errorf("adding schema resource: %w", err)
		}

		schema, err := compiler.Compile(schemaName)
		if err != nil {
			return nil, fmt.Errorf("compiling schema: %w", err)
		}

		return schema, nil
	})

	//nolint:gochecknoglobals // shared message printer
	printer = message.NewPrinter(language.English)
)

//go:embed schema/config.schema.json
var schemaBytes []byte

// collectIssues walks the error tree and keeps the leaves, skipping container keywords.
func collectIssues(verr *jsonschema.ValidationError, issues *[]Issue) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			collectIssues(cause, issues)
		}

		return
	}

	if verr.ErrorKind == nil {
		return
	}

	keyword := ""
	if kwPath := verr.ErrorKind.KeywordPath(); len(kwPath) > 0 {
		keyword = kwPath[len(kwPath)-1]
	}

	if keyword == "" || keyword == "$ref" || keyword == "allOf" {
		return
	}

	path := ""
	if len(verr.InstanceLocation) > 0 {
		path = "/" + strings.Join(verr.InstanceLocation, "/")
	}

	*issues = append(*issues, Issue{
		Path:    path,
		Message: verr.ErrorKind.LocalizedString(printer),
		Keyword: keyword,
	})
}

func getSchema() (*jsonschema.Schema, error) {
	return compileSchema()
}
