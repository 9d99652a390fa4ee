package pipeline

import (
	"github.com/leapstack-labs/pipewright/internal/capability"
	"github.com/leapstack-labs/pipewright/internal/compat"
	"github.com/leapstack-labs/pipewright/internal/config"
	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/internal/extensions"
	"github.com/leapstack-labs/pipewright/internal/modulepath"
	"github.com/leapstack-labs/pipewright/internal/plugins"
	"github.com/leapstack-labs/pipewright/internal/registry"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// DefaultRuntimeVersion is handed to the runtime helpers step when the
// project does not pin the runtime package.
const DefaultRuntimeVersion = "7.12.0"

// Project describes the root project a unit is built in.
type Project struct {
	Name        string
	Deps        core.DependencyGraph
	Targets     core.TargetSpec
	Environment string
	CI          bool
}

// Input is everything needed to resolve one unit.
type Input struct {
	Unit     string
	IsRoot   bool
	Sources  []core.ConfigSource
	UnitDeps core.DependencyGraph
	Project  Project
}

// Plan is a resolved descriptor together with the decisions behind it.
type Plan struct {
	Unit       string
	Descriptor *core.PipelineDescriptor
	Config     *core.NormalizedConfig

	CompileModules bool
	Helpers        bool
	TypedDialect   bool
	// Polyfill is true when the unit asked for the runtime polyfill bundle.
	Polyfill bool

	// Diagnostics are the warnings emitted while building the plan.
	Diagnostics []diag.Diagnostic
}

// Config holds builder configuration.
type Config struct {
	// BaseDir anchors relative external config files.
	BaseDir string
	// Oracle decides target-dependent steps. Nil uses compat.DefaultTable.
	Oracle compat.Oracle
	// Registry resolves equivalent step identifiers. Nil uses registry.Default.
	Registry *registry.Registry
}

// Builder resolves units into pipeline descriptors. A Builder holds no
// per-build state and may be shared.
type Builder struct {
	baseDir  string
	oracle   compat.Oracle
	registry *registry.Registry
}

// New creates a Builder.
func New(cfg Config) *Builder {
	b := &Builder{baseDir: cfg.BaseDir, oracle: cfg.Oracle, registry: cfg.Registry}
	if b.oracle == nil {
		b.oracle = compat.DefaultTable()
	}
	if b.registry == nil {
		b.registry = registry.Default()
	}
	return b
}

// Build resolves in into its descriptor. Fatal errors are reported through
// the context sink and returned unwrapped so callers can match their type.
func (b *Builder) Build(ctx *Context, in Input) (*core.PipelineDescriptor, error) {
	plan, err := b.Plan(ctx, in)
	if err != nil {
		return nil, err
	}
	return plan.Descriptor, nil
}

// Plan resolves in and returns the descriptor with the capability decisions
// that produced it.
func (b *Builder) Plan(ctx *Context, in Input) (*Plan, error) {
	logger := ctx.Logger().With("unit", in.Unit)
	logger.Debug("resolving pipeline", "root", in.IsRoot, "sources", len(in.Sources))

	plan := &Plan{Unit: in.Unit}
	emit := func(d diag.Diagnostic) {
		plan.Diagnostics = append(plan.Diagnostics, d)
		ctx.report(d)
	}

	resolver := &config.Resolver{
		BaseDir: b.baseDir,
		Logger:  logger,
		Report: func(d diag.Diagnostic) {
			if ctx.reportOnce(d) {
				plan.Diagnostics = append(plan.Diagnostics, d)
			}
		},
	}
	cfg, err := resolver.Resolve(in.Unit, in.Sources)
	if err != nil {
		ctx.fail(err)
		return nil, err
	}
	plan.Config = cfg

	projectScope := "project:" + in.Project.Name
	unitScope := "unit:" + in.Project.Name + "/" + in.Unit
	det := &capability.Detector{
		Unit:        in.Unit,
		IsRoot:      in.IsRoot,
		UnitDeps:    ctx.Graph(unitScope, in.UnitDeps),
		ProjectDeps: ctx.Graph(projectScope, in.Project.Deps),
		Oracle:      b.oracle,
		Targets:     in.Project.Targets,
		Registry:    b.registry,
	}

	helpers, err := det.Helpers(cfg)
	if err != nil {
		ctx.fail(err)
		return nil, err
	}
	for _, d := range helpers.Diagnostics {
		emit(d)
	}

	caps := plugins.Capabilities{
		Helpers:           helpers.Enabled,
		TypedDialect:      det.TypedDialect(cfg).Enabled,
		Debug:             capability.NewDebugFlags(in.Project.Environment, in.Project.CI),
		GlobalsPolyfill:   det.GlobalsPolyfill(cfg),
		PackagingPolyfill: det.PackagingPolyfill(cfg).Enabled,
		CompileModules:    det.CompileModules(cfg).Enabled,
		Targets:           in.Project.Targets,
	}
	if caps.Helpers {
		caps.RuntimeVersion = ctx.runtimeVersion(in.Project.Name, det.ProjectDeps, runtimeVersion)
	}

	decorators := det.Decorators(cfg)
	classFields := det.ClassFields(cfg)
	for _, d := range append(decorators.Diagnostics, classFields.Diagnostics...) {
		emit(d)
	}
	caps.Decorators = decorators.Enabled
	caps.ClassFields = classFields.Enabled
	if caps.ClassFields {
		caps.PrivateMethods = det.PrivateFields(registry.StepPrivateMethods).Enabled
		caps.PrivateInObject = det.PrivateFields(registry.StepPrivateInObject).Enabled
	}

	asm := &plugins.Assembler{Unit: in.Unit, Registry: b.registry}
	res := asm.Assemble(cfg, caps)
	for _, d := range res.Diagnostics {
		emit(d)
	}

	desc := &core.PipelineDescriptor{
		Annotation:                cfg.Annotation,
		SourceMaps:                cfg.SourceMaps,
		Extensions:                extensions.Resolve(cfg.Extensions, caps.TypedDialect),
		Plugins:                   res.Plugins,
		Presets:                   res.Presets,
		ThrowUnlessParallelizable: cfg.ThrowUnlessParallelizable,
	}
	if desc.Plugins == nil {
		desc.Plugins = []core.PluginRef{}
	}
	if desc.Presets == nil {
		desc.Presets = []core.PluginRef{}
	}
	if caps.CompileModules {
		desc.ModuleIDStrategy = modulepath.Strategy
	}
	desc.Trivial = core.IsTrivial(desc)

	plan.Descriptor = desc
	plan.CompileModules = caps.CompileModules
	plan.Helpers = caps.Helpers
	plan.TypedDialect = caps.TypedDialect
	plan.Polyfill = det.Polyfill(cfg).Enabled

	logger.Debug("resolved pipeline",
		"plugins", len(desc.Plugins),
		"trivial", desc.Trivial,
		"compile_modules", plan.CompileModules,
		"helpers", plan.Helpers,
	)
	if desc.Trivial {
		logger.Debug("pipeline is trivial, sources pass through unchanged")
	}
	return plan, nil
}

func runtimeVersion(deps core.DependencyGraph) string {
	if deps != nil {
		if dep := deps.Lookup(capability.PkgRuntime); dep.HasVersion() {
			return dep.Version
		}
	}
	return DefaultRuntimeVersion
}
