// Package config provides configuration structures and utilities for PhishGuard.
// It defines the advisory provider settings, training data locations, heuristic
// pattern extensions and report preferences, and loads them from the .phishguard
// YAML file and the environment.
package config
