// Package decoreg rewrites ECMAScript modules so that every class declaration marked with a
// registration decorator is registered right after it is declared.
//
// Given
//
//	@component()
//	class Foo {}
//
// the pass makes sure the registrar and storage modules are each imported once, under names
// that collide with nothing else in the module, and emits
//
//	Register.Register.customElement(Foo, storage.storage);
//
// directly after the class.
//
// This is the public API entry point. The scanning and rewriting stages live in internal/pass.
package decoreg

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/toejough/decoreg/internal/ctxlog"
	scan "github.com/toejough/decoreg/internal/pass/1_scan"
	rewrite "github.com/toejough/decoreg/internal/pass/2_rewrite"
	"github.com/toejough/decoreg/jsast"
	"github.com/toejough/decoreg/jsparse"
	"github.com/toejough/decoreg/jsprint"
)

// DefaultAnnotation is the decorator name the pass looks for when none is configured.
const DefaultAnnotation = "component"

// Binding kinds re-exported from internal/pass/2_rewrite.
const (
	BindingNamespace = rewrite.BindingNamespace
	BindingNamed     = rewrite.BindingNamed
)

// Naming styles re-exported from jsast.
const (
	NamingPlain      = jsast.NamingPlain
	NamingUnderscore = jsast.NamingUnderscore
)

// State values.
const (
	// StateScanned: the unit was scanned and had no annotated class. The tree is untouched.
	StateScanned State = iota
	// StateRewritten: imports were ensured and registration calls inserted.
	StateRewritten
)

// Errors re-exported from internal/pass/2_rewrite.
var (
	ErrConfiguration  = rewrite.ErrConfiguration
	ErrMissingBinding = rewrite.ErrMissingBinding
)

// BindingKind says how a registration call reaches a module's logical export.
type BindingKind = rewrite.BindingKind

// Config configures a Pass.
type Config struct {
	// Annotation is the decorator callee to look for. Empty means DefaultAnnotation.
	Annotation string
	// Imports must hold exactly two specs: the registrar, then the storage.
	Imports []ImportSpec
	Naming  NamingStyle
}

// DefaultConfig returns the @component() configuration with the default helper modules.
func DefaultConfig() Config {
	return Config{Annotation: DefaultAnnotation, Imports: DefaultImports()}
}

// GeneratedBinding associates a logical name with the local identifier emitted code uses.
type GeneratedBinding = rewrite.GeneratedBinding

// ImportSpec names a module that must be imported and the export the registration call uses.
type ImportSpec = rewrite.ImportSpec

// DefaultImports returns the registrar and storage modules of the component decorator helpers.
func DefaultImports() []ImportSpec {
	return []ImportSpec{
		{LogicalName: "Register", ModulePath: "app-decorators-helper/register-document"},
		{LogicalName: "storage", ModulePath: "app-decorators-helper/registry-storage"},
	}
}

// NamingStyle selects how generated local names are spelled.
type NamingStyle = jsast.NamingStyle

// Pass is a configured registration pass. It holds no per-unit state, so one Pass may serve
// any number of goroutines.
type Pass struct {
	annotation string
	specs      [2]ImportSpec
	naming     NamingStyle
}

// New validates cfg and returns a Pass.
func New(cfg Config) (*Pass, error) {
	annotation := cfg.Annotation
	if annotation == "" {
		annotation = DefaultAnnotation
	}

	if !jsast.IsIdentifier(annotation) {
		return nil, fmt.Errorf("%w: annotation %q is not a valid identifier", ErrConfiguration, annotation)
	}

	if cfg.Naming != NamingPlain && cfg.Naming != NamingUnderscore {
		return nil, fmt.Errorf("%w: unknown naming style %v", ErrConfiguration, cfg.Naming)
	}

	specs, err := rewrite.ValidateSpecs(cfg.Imports)
	if err != nil {
		return nil, err
	}

	return &Pass{annotation: annotation, specs: specs, naming: cfg.Naming}, nil
}

// Report describes what a pass did to one unit.
type Report struct {
	File     string             `json:"file,omitempty"`
	State    State              `json:"state"`
	Classes  []string           `json:"classes,omitempty"`
	Inserted int                `json:"inserted"`
	Bindings []GeneratedBinding `json:"bindings,omitempty"`
}

// Changed reports whether the tree was modified.
func (r Report) Changed() bool {
	if r.Inserted > 0 {
		return true
	}

	for _, binding := range r.Bindings {
		if binding.Created || binding.Extended {
			return true
		}
	}

	return false
}

// State is the terminal state of a unit.
type State int

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateScanned:
		return "scanned"
	case StateRewritten:
		return "rewritten"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "scanned":
		*s = StateScanned
	case "rewritten":
		*s = StateRewritten
	default:
		return fmt.Errorf("%w: %q", errUnknownState, text)
	}

	return nil
}

// Transform runs a one-off pass configured by cfg over src.
func Transform(src []byte, cfg Config) ([]byte, error) {
	pass, err := New(cfg)
	if err != nil {
		return nil, err
	}

	out, _, err := pass.TransformSource(context.Background(), "", src)

	return out, err
}

// Annotation returns the decorator name the pass looks for.
func (p *Pass) Annotation() string {
	return p.annotation
}

// Apply runs the pass over prog, mutating it in place. A unit without annotated classes is left
// untouched and ends in StateScanned.
func (p *Pass) Apply(ctx context.Context, prog *jsast.Program) (Report, error) {
	log := ctxlog.FromContext(ctx)

	result := scan.Scan(ctx, prog, p.annotation)
	report := Report{State: StateScanned}

	if !result.Annotated() {
		log.Debug("no annotated classes", "annotation", p.annotation)
		return report, nil
	}

	for _, class := range result.Classes {
		report.Classes = append(report.Classes, class.Name)
	}

	opts := rewrite.Options{Naming: p.naming, Newline: prog.Newline}

	bindings, err := rewrite.EnsureImports(prog, jsast.NewScope(prog), p.specs, result.Imports, opts)
	if err != nil {
		return report, fmt.Errorf("ensuring imports: %w", err)
	}

	for _, binding := range bindings.All() {
		log.Debug("binding",
			"logical", binding.LogicalName,
			"local", binding.LocalName,
			"module", binding.ModulePath,
			"kind", binding.Kind,
			"created", binding.Created,
			"extended", binding.Extended,
		)
	}

	inserted, err := rewrite.InsertRegistrationCalls(result.Classes, bindings, p.specs, opts)
	if err != nil {
		return report, fmt.Errorf("inserting registration calls: %w", err)
	}

	report.State = StateRewritten
	report.Inserted = inserted
	report.Bindings = bindings.All()

	return report, nil
}

// Imports returns the registrar and storage specs.
func (p *Pass) Imports() [2]ImportSpec {
	return p.specs
}

// Naming returns the naming style for generated local names.
func (p *Pass) Naming() NamingStyle {
	return p.naming
}

// Signature identifies the pass configuration. Two passes with equal signatures produce the
// same output for the same input.
func (p *Pass) Signature() string {
	return fmt.Sprintf("%s|%s|%s=%s|%s=%s",
		p.annotation, p.naming,
		p.specs[0].LogicalName, p.specs[0].ModulePath,
		p.specs[1].LogicalName, p.specs[1].ModulePath,
	)
}

// TransformSource parses src, applies the pass and prints the result. When nothing changed the
// input bytes are returned as they are. name is only used in errors.
func (p *Pass) TransformSource(ctx context.Context, name string, src []byte) ([]byte, Report, error) {
	report := Report{File: name}

	prog, err := jsparse.Parse(src)
	if err != nil {
		return nil, report, wrapName(name, err)
	}

	report, err = p.Apply(ctx, prog)
	report.File = name

	if err != nil {
		return nil, report, wrapName(name, err)
	}

	if !report.Changed() {
		return src, report, nil
	}

	return jsprint.Print(prog), report, nil
}

// unexported variables.
var (
	errUnknownState = errors.New("unknown state")
)

func wrapName(name string, err error) error {
	if name == "" {
		return err
	}

	return fmt.Errorf("%s: %w", name, err)
}
