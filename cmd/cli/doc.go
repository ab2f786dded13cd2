// Package cli wires the glim root command, configuration loading, and logging.
package cli
