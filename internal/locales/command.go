package locales

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/glim/internal/execshell"
	"github.com/temirov/glim/internal/ui"
	"github.com/temirov/glim/internal/utils"
)

const (
	commandUseConstant                   = "locales"
	commandShortDescriptionConstant      = "Merge a localization bundle into a theme"
	commandLongDescriptionConstant       = "locales downloads a localization bundle archive, deep-merges its translation files over the theme copies, and syncs the result into the theme locales directory with rsync."
	bundleURLFlagNameConstant            = "bundle-url"
	bundleURLFlagUsageConstant           = "URL of the localization bundle archive"
	themeDirectoryFlagNameConstant       = "theme-dir"
	themeDirectoryFlagUsageConstant      = "Theme directory receiving merged translations"
	localesSubdirectoryFlagNameConstant  = "locales-subdir"
	localesSubdirectoryFlagUsageConstant = "Subdirectory of the theme holding translations"
	stagingDirectoryFlagNameConstant     = "staging-dir"
	stagingDirectoryFlagUsageConstant    = "Directory reused for download and merge staging"
	mergeCommandErrorTemplateConstant    = "locales merge failed: %w"
	logMessageMergeCompletedConstant     = "Locales merge completed"
	logFieldMergedCountConstant          = "merged"
	logFieldStagedCountConstant          = "staged"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a merge service from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (*Service, error)

// CommandBuilder assembles the locales Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ServiceProvider       ServiceProvider
	Downloader            BundleDownloader
	Executor              CommandExecutor
}

// Build constructs the locales command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	configuration := builder.resolveConfiguration()

	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMerge,
	}

	command.Flags().String(bundleURLFlagNameConstant, configuration.BundleURL, bundleURLFlagUsageConstant)
	command.Flags().String(themeDirectoryFlagNameConstant, configuration.ThemeDirectory, themeDirectoryFlagUsageConstant)
	command.Flags().String(localesSubdirectoryFlagNameConstant, configuration.LocalesSubdirectory, localesSubdirectoryFlagUsageConstant)
	command.Flags().String(stagingDirectoryFlagNameConstant, configuration.StagingDirectory, stagingDirectoryFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMerge(command *cobra.Command, arguments []string) error {
	configuration := builder.parseConfiguration(command)
	logger := builder.resolveLogger(command)

	executor, executorError := builder.resolveExecutor(command, logger)
	if executorError != nil {
		return executorError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:     logger,
		Downloader: builder.Downloader,
		Executor:   executor,
	})
	if serviceError != nil {
		return serviceError
	}

	result, mergeError := service.Execute(command.Context(), MergeOptions{
		BundleURL:           configuration.BundleURL,
		ThemeDirectory:      configuration.ThemeDirectory,
		LocalesSubdirectory: configuration.LocalesSubdirectory,
		StagingDirectory:    configuration.StagingDirectory,
	})
	if mergeError != nil {
		return fmt.Errorf(mergeCommandErrorTemplateConstant, mergeError)
	}

	logger.Info(
		logMessageMergeCompletedConstant,
		zap.Int(logFieldMergedCountConstant, len(result.MergedTranslations)),
		zap.Int(logFieldStagedCountConstant, len(result.StagedTranslations)),
	)

	return nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := builder.resolveConfiguration()

	flags := command.Flags()
	if flags.Changed(bundleURLFlagNameConstant) {
		configuration.BundleURL, _ = flags.GetString(bundleURLFlagNameConstant)
	}
	if flags.Changed(themeDirectoryFlagNameConstant) {
		configuration.ThemeDirectory, _ = flags.GetString(themeDirectoryFlagNameConstant)
	}
	if flags.Changed(localesSubdirectoryFlagNameConstant) {
		configuration.LocalesSubdirectory, _ = flags.GetString(localesSubdirectoryFlagNameConstant)
	}
	if flags.Changed(stagingDirectoryFlagNameConstant) {
		configuration.StagingDirectory, _ = flags.GetString(stagingDirectoryFlagNameConstant)
	}

	return configuration.Sanitize()
}

func (builder *CommandBuilder) resolveLogger(command *cobra.Command) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if command != nil {
		contextAccessor := utils.NewCommandContextAccessor()
		if logLevel, available := contextAccessor.LogLevel(command.Context()); available {
			if strings.EqualFold(logLevel, string(utils.LogLevelDebug)) {
				logger = logger.WithOptions(zap.IncreaseLevel(zapcore.DebugLevel))
			}
		}
	}

	return logger
}

func (builder *CommandBuilder) resolveExecutor(command *cobra.Command, logger *zap.Logger) (CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}

	if command != nil {
		contextAccessor := utils.NewCommandContextAccessor()
		if logFormat, available := contextAccessor.LogFormat(command.Context()); available {
			if strings.EqualFold(logFormat, string(utils.LogFormatConsole)) {
				shellExecutor.SetCommandEventObserver(ui.NewConsoleCommandEventLogger(logger))
			}
		}
	}

	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (*Service, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
