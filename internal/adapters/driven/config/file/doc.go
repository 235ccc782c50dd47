// Package file provides the TOML configuration file of the broker.
//
// Keys are flattened to dot notation on load ("credential.authority") and
// written back as nested tables.
package file
