// Package config loads the dashboard and pipeline configuration.
//
// # Configuration Sources
//
// Configuration is built from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file (config.yaml or configs/config.yaml)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CLIMATE_<SECTION>_<FIELD>:
//
//	CLIMATE_SERVER_PORT=8050
//	CLIMATE_PATHS_INPUT_DIR=climate_data
//	CLIMATE_PIPELINE_SQL_DRIVER=sqlite
//	CLIMATE_LOGGING_LEVEL=debug
//
// # Paths
//
// Relative paths are resolved against the working directory by ResolvePaths.
// Output files land in the output directory unless configured as absolute paths.
package config
