// Package config provides configuration structures and utilities for seggy.
// It defines the generation backends and tiers, the quality gate, pipeline
// limits, and the HTTP server and run-history settings.
package config
