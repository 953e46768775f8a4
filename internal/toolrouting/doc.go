// Package toolrouting maps workflow steps to MCP tool bundles.
//
// A routing [Table] names, per workflow, role and step, the bundles a step
// may use. Resolution is deny-by-default: a step with no entry gets no
// bundles. A [Registry] turns the resolved bundles into MCP server
// directives with enabled and disabled tool lists, and a [Watcher] keeps a
// registry in sync with a YAML routing file.
package toolrouting
