// Package config loads and validates the workstore configuration file.
// Configuration is plain YAML decoded into tagged structs and checked with
// go-playground/validator; defaults cover everything, so an empty file is a
// valid configuration.
package config
