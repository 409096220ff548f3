// Package providers contains the built-in provider packages. Each
// subpackage exports a manifest plus the auth strategy its API needs, and
// providers/devkit carries the fixtures and conformance helpers used to
// test new ones.
package providers
