// Package config loads retrievit settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
//
// Example file:
//
//	embedding:
//	  host: http://localhost:11434/v1
//	  model: all-minilm
//	chunking:
//	  size: 512
//	  overlap: 50
//	search:
//	  top_k: 5
//	  min_score: 0.1
//	  use_hybrid: true
//	store:
//	  path: retrievit.db
//
// Sections that are omitted keep their defaults.
package config
