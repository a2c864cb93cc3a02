// Package app wires the loader together. It builds the logger, the
// collaborators and the coordinator from a config.Config and the compiled-in
// modules, decoupled from whatever host process embeds it.
package app
