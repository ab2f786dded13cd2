// Package ui renders command lifecycle events as concise console messages.
// Structured telemetry keeps flowing through the zap logger; these helpers
// exist so console users can follow mirror transfers and bundle merges.
package ui
