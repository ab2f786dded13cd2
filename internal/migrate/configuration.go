package migrate

import "strings"

const (
	sourceBaseURLConfigKeySuffixConstant        = ".source_base_url"
	sourceTokenVariableConfigKeySuffixConstant  = ".source_token_env"
	sourceGroupIDConfigKeySuffixConstant        = ".source_group_id"
	sourceGroupPathConfigKeySuffixConstant      = ".source_group_path"
	destinationBaseURLConfigKeySuffixConstant   = ".destination_base_url"
	destinationTokenConfigKeySuffixConstant     = ".destination_token_env"
	destinationRootIDConfigKeySuffixConstant    = ".destination_root_group_id"
	destinationRootPathConfigKeySuffixConstant  = ".destination_root_group_path"
	workspaceDirectoryConfigKeySuffixConstant   = ".workspace_directory"
	journalDirectoryConfigKeySuffixConstant     = ".journal_directory"
	projectVisibilityConfigKeySuffixConstant    = ".visibility"
	transferLFSConfigKeySuffixConstant          = ".lfs"
	defaultSourceTokenVariableNameConstant      = "GLIM_SOURCE_TOKEN"
	defaultDestinationTokenVariableNameConstant = "GLIM_DESTINATION_TOKEN"
	defaultWorkspaceDirectoryConstant           = ".glim-workspace"
	defaultJournalDirectoryConstant             = "."
	defaultProjectVisibilityConstant            = "private"
)

// CommandConfiguration captures persisted configuration for instance migration.
type CommandConfiguration struct {
	SourceBaseURL            string `mapstructure:"source_base_url"`
	SourceTokenVariable      string `mapstructure:"source_token_env"`
	SourceGroupID            int64  `mapstructure:"source_group_id"`
	SourceGroupPath          string `mapstructure:"source_group_path"`
	DestinationBaseURL       string `mapstructure:"destination_base_url"`
	DestinationTokenVariable string `mapstructure:"destination_token_env"`
	DestinationRootGroupID   int64  `mapstructure:"destination_root_group_id"`
	DestinationRootGroupPath string `mapstructure:"destination_root_group_path"`
	WorkspaceDirectory       string `mapstructure:"workspace_directory"`
	JournalDirectory         string `mapstructure:"journal_directory"`
	ProjectVisibility        string `mapstructure:"visibility"`
	TransferLFS              bool   `mapstructure:"lfs"`
}

// DefaultCommandConfiguration returns baseline configuration values for migration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SourceTokenVariable:      defaultSourceTokenVariableNameConstant,
		DestinationTokenVariable: defaultDestinationTokenVariableNameConstant,
		WorkspaceDirectory:       defaultWorkspaceDirectoryConstant,
		JournalDirectory:         defaultJournalDirectoryConstant,
		ProjectVisibility:        defaultProjectVisibilityConstant,
		TransferLFS:              true,
	}
}

// DefaultConfigurationValues exposes migration defaults keyed beneath the supplied prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + sourceTokenVariableConfigKeySuffixConstant: defaults.SourceTokenVariable,
		configurationKeyPrefix + destinationTokenConfigKeySuffixConstant:    defaults.DestinationTokenVariable,
		configurationKeyPrefix + workspaceDirectoryConfigKeySuffixConstant:  defaults.WorkspaceDirectory,
		configurationKeyPrefix + journalDirectoryConfigKeySuffixConstant:    defaults.JournalDirectory,
		configurationKeyPrefix + projectVisibilityConfigKeySuffixConstant:   defaults.ProjectVisibility,
		configurationKeyPrefix + transferLFSConfigKeySuffixConstant:         defaults.TransferLFS,
	}
}

// Sanitize trims configured values and applies fallbacks for blank entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()

	sanitized := configuration
	sanitized.SourceBaseURL = strings.TrimSpace(configuration.SourceBaseURL)
	sanitized.SourceGroupPath = strings.Trim(strings.TrimSpace(configuration.SourceGroupPath), "/")
	sanitized.DestinationBaseURL = strings.TrimSpace(configuration.DestinationBaseURL)
	sanitized.DestinationRootGroupPath = strings.Trim(strings.TrimSpace(configuration.DestinationRootGroupPath), "/")

	sanitized.SourceTokenVariable = strings.TrimSpace(configuration.SourceTokenVariable)
	if len(sanitized.SourceTokenVariable) == 0 {
		sanitized.SourceTokenVariable = defaults.SourceTokenVariable
	}

	sanitized.DestinationTokenVariable = strings.TrimSpace(configuration.DestinationTokenVariable)
	if len(sanitized.DestinationTokenVariable) == 0 {
		sanitized.DestinationTokenVariable = defaults.DestinationTokenVariable
	}

	sanitized.WorkspaceDirectory = strings.TrimSpace(configuration.WorkspaceDirectory)
	if len(sanitized.WorkspaceDirectory) == 0 {
		sanitized.WorkspaceDirectory = defaults.WorkspaceDirectory
	}

	sanitized.JournalDirectory = strings.TrimSpace(configuration.JournalDirectory)
	if len(sanitized.JournalDirectory) == 0 {
		sanitized.JournalDirectory = defaults.JournalDirectory
	}

	sanitized.ProjectVisibility = strings.ToLower(strings.TrimSpace(configuration.ProjectVisibility))
	if len(sanitized.ProjectVisibility) == 0 {
		sanitized.ProjectVisibility = defaults.ProjectVisibility
	}

	return sanitized
}
