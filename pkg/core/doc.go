// Package core defines the shared language of the pipewright system.
//
// This package contains:
//   - Configuration input (Scope, ConfigSource) and its merged form (NormalizedConfig)
//   - Transformation step references (PluginRef) and source map settings
//   - Dependency facts supplied by the host project (Dependency, DependencyGraph)
//   - The resolver output (PipelineDescriptor)
//
// The Golden Rule: pkg/core imports only the standard library and yaml.v3.
// All other packages depend on core, not the reverse.
package core
