// Package config loads prompt configurations from JSON or YAML documents.
//
// A document holds either a single form at the top level or a list under
// "forms". Variables may be given as flat prompt_variables entries or as the
// keyed user_input_form list; both are normalised through the model builder,
// so aliases and the legacy hidden suffix are resolved at load time.
package config
