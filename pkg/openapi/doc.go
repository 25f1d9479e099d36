// Package openapi derives prompt variables from an OpenAPI request body so an
// existing endpoint can be exposed as a run-once form without hand-written
// configuration.
package openapi
