// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines abstractions used
// throughout glim to run git, git-lfs, rsync, and unzip in a testable manner.
package execshell
