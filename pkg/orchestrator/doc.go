// Package orchestrator wires the config store, the OpenAPI descriptor source,
// form transformers, and the renderer registry behind a single Generate call.
package orchestrator
