// Package config defines the format-agnostic pipeline document and the
// Loader interface that format-specific packages implement.
//
// A Document is what every other package works on once a file has been read.
// Concrete loaders live in separate packages: internal/hcl for .hcl files and
// internal/yamlconfig for .yaml, .yml and .json files.
package config
