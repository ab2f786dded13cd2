// Package locales downloads a localization bundle and merges its translation
// files into a theme directory. Bundle translations win over theme values while
// keys present only in the theme survive the merge.
package locales
