// Package config loads the runtime configuration of the lvlca command.
//
// Values come, in increasing priority, from built-in defaults, an optional
// .lvlca.yaml or .lvlca.toml file (working directory, then home), LVLCA_*
// environment variables and bound command-line flags. Library packages do
// not read configuration; the command translates a Config into functional
// options.
package config
