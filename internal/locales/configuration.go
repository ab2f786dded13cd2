package locales

import "strings"

const (
	bundleURLConfigKeySuffixConstant        = ".bundle_url"
	themeDirectoryConfigKeySuffixConstant   = ".theme_directory"
	localesSubdirectoryConfigKeySuffix      = ".locales_subdirectory"
	stagingDirectoryConfigKeySuffixConstant = ".staging_directory"
	defaultLocalesSubdirectoryConstant      = "locales"
)

// CommandConfiguration captures persisted configuration for the locales merge.
type CommandConfiguration struct {
	BundleURL           string `mapstructure:"bundle_url"`
	ThemeDirectory      string `mapstructure:"theme_directory"`
	LocalesSubdirectory string `mapstructure:"locales_subdirectory"`
	StagingDirectory    string `mapstructure:"staging_directory"`
}

// DefaultCommandConfiguration returns baseline configuration values for the locales merge.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		LocalesSubdirectory: defaultLocalesSubdirectoryConstant,
	}
}

// DefaultConfigurationValues exposes locales defaults keyed beneath the supplied prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + localesSubdirectoryConfigKeySuffix: defaults.LocalesSubdirectory,
	}
}

// Sanitize trims configured values and applies fallbacks for blank entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()

	sanitized := configuration
	sanitized.BundleURL = strings.TrimSpace(configuration.BundleURL)
	sanitized.ThemeDirectory = strings.TrimSpace(configuration.ThemeDirectory)
	sanitized.StagingDirectory = strings.TrimSpace(configuration.StagingDirectory)

	sanitized.LocalesSubdirectory = strings.Trim(strings.TrimSpace(configuration.LocalesSubdirectory), "/")
	if len(sanitized.LocalesSubdirectory) == 0 {
		sanitized.LocalesSubdirectory = defaults.LocalesSubdirectory
	}

	return sanitized
}
