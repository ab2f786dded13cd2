package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/glim/internal/execshell"
	"github.com/temirov/glim/internal/gitlabapi"
	"github.com/temirov/glim/internal/namespace"
	"github.com/temirov/glim/internal/ui"
	"github.com/temirov/glim/internal/utils"
	flagutils "github.com/temirov/glim/internal/utils/flags"
)

const (
	commandUseConstant                        = "migrate"
	commandShortDescriptionConstant           = "Migrate projects between GitLab instances"
	commandLongDescriptionConstant            = "migrate enumerates every project beneath a source GitLab group, recreates the group hierarchy under a destination root group, and mirrors each repository with git push --mirror, optionally carrying LFS objects."
	sourceURLFlagNameConstant                 = "source-url"
	sourceURLFlagUsageConstant                = "Base URL of the source GitLab instance"
	sourceGroupIDFlagNameConstant             = "source-group-id"
	sourceGroupIDFlagUsageConstant            = "Numeric identifier of the source group"
	sourceGroupPathFlagNameConstant           = "source-group-path"
	sourceGroupPathFlagUsageConstant          = "Full path of the source group"
	destinationURLFlagNameConstant            = "dest-url"
	destinationURLFlagUsageConstant           = "Base URL of the destination GitLab instance"
	destinationGroupIDFlagNameConstant        = "dest-root-group-id"
	destinationGroupIDFlagUsageConstant       = "Numeric identifier of the destination root group"
	destinationGroupPathFlagNameConstant      = "dest-root-group-path"
	destinationGroupPathFlagUsageConstant     = "Full path of the destination root group"
	workspaceFlagNameConstant                 = "workspace"
	workspaceFlagUsageConstant                = "Directory used for temporary mirror clones"
	journalFlagNameConstant                   = "journal-dir"
	journalFlagUsageConstant                  = "Directory receiving the success and error journals"
	visibilityFlagNameConstant                = "visibility"
	visibilityFlagDescriptionConstant         = "Visibility assigned to created destination projects"
	lfsFlagNameConstant                       = "lfs"
	lfsFlagUsageConstant                      = "Transfer Git LFS objects alongside the repository"
	dryRunFlagNameConstant                    = "dry-run"
	dryRunFlagUsageConstant                   = "Preview the migration without contacting the destination"
	flagShorthandEmptyConstant                = ""
	sourceTokenMissingTemplateConstant        = "source token environment variable %s is empty"
	destinationTokenMissingTemplateConstant   = "destination token environment variable %s is empty"
	sourceClientErrorTemplateConstant         = "unable to construct source client: %w"
	destinationClientErrorTemplateConstant    = "unable to construct destination client: %w"
	resolverCreationErrorTemplateConstant     = "unable to construct namespace resolver: %w"
	journalCreationErrorTemplateConstant      = "unable to open migration journal: %w"
	migrationCommandErrorTemplateConstant     = "migration failed: %w"
	logMessageMigrationCompletedConstant      = "Migration completed"
	logFieldMigratedCountConstant             = "migrated"
	logFieldFailedCountConstant               = "failed"
	visibilityPrivateConstant                 = "private"
	visibilityInternalConstant                = "internal"
	visibilityPublicConstant                  = "public"
)

var projectVisibilityChoices = []string{visibilityPrivateConstant, visibilityInternalConstant, visibilityPublicConstant}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ClientProvider constructs a GitLab API client for the given options.
type ClientProvider func(options gitlabapi.ClientOptions) (*gitlabapi.Client, error)

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (*Service, error)

type commandOptions struct {
	configuration CommandConfiguration
	dryRun        bool
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ClientProvider        ClientProvider
	ServiceProvider       ServiceProvider
	Executor              CommandExecutor
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	configuration := builder.resolveConfiguration()

	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMigrate,
	}

	command.Flags().String(sourceURLFlagNameConstant, configuration.SourceBaseURL, sourceURLFlagUsageConstant)
	command.Flags().Int64(sourceGroupIDFlagNameConstant, configuration.SourceGroupID, sourceGroupIDFlagUsageConstant)
	command.Flags().String(sourceGroupPathFlagNameConstant, configuration.SourceGroupPath, sourceGroupPathFlagUsageConstant)
	command.Flags().String(destinationURLFlagNameConstant, configuration.DestinationBaseURL, destinationURLFlagUsageConstant)
	command.Flags().Int64(destinationGroupIDFlagNameConstant, configuration.DestinationRootGroupID, destinationGroupIDFlagUsageConstant)
	command.Flags().String(destinationGroupPathFlagNameConstant, configuration.DestinationRootGroupPath, destinationGroupPathFlagUsageConstant)
	command.Flags().String(workspaceFlagNameConstant, configuration.WorkspaceDirectory, workspaceFlagUsageConstant)
	command.Flags().String(journalFlagNameConstant, configuration.JournalDirectory, journalFlagUsageConstant)
	command.Flags().String(
		visibilityFlagNameConstant,
		configuration.ProjectVisibility,
		flagutils.FormatChoiceUsage(configuration.ProjectVisibility, projectVisibilityChoices, visibilityFlagDescriptionConstant),
	)
	flagutils.AddToggleFlag(command.Flags(), nil, lfsFlagNameConstant, flagShorthandEmptyConstant, configuration.TransferLFS, lfsFlagUsageConstant)
	flagutils.AddToggleFlag(command.Flags(), nil, dryRunFlagNameConstant, flagShorthandEmptyConstant, false, dryRunFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger(command)

	sourceToken := os.Getenv(options.configuration.SourceTokenVariable)
	if len(strings.TrimSpace(sourceToken)) == 0 {
		return fmt.Errorf(sourceTokenMissingTemplateConstant, options.configuration.SourceTokenVariable)
	}

	sourceClient, sourceClientError := builder.resolveClient(gitlabapi.ClientOptions{
		BaseURL:      options.configuration.SourceBaseURL,
		PrivateToken: sourceToken,
	})
	if sourceClientError != nil {
		return fmt.Errorf(sourceClientErrorTemplateConstant, sourceClientError)
	}

	var destinationClient *gitlabapi.Client
	var resolver NamespaceResolver
	var journal OutcomeRecorder

	if !options.dryRun {
		destinationToken := os.Getenv(options.configuration.DestinationTokenVariable)
		if len(strings.TrimSpace(destinationToken)) == 0 {
			return fmt.Errorf(destinationTokenMissingTemplateConstant, options.configuration.DestinationTokenVariable)
		}

		var destinationClientError error
		destinationClient, destinationClientError = builder.resolveClient(gitlabapi.ClientOptions{
			BaseURL:      options.configuration.DestinationBaseURL,
			PrivateToken: destinationToken,
		})
		if destinationClientError != nil {
			return fmt.Errorf(destinationClientErrorTemplateConstant, destinationClientError)
		}

		namespaceResolver, resolverError := namespace.NewResolver(logger, destinationClient)
		if resolverError != nil {
			return fmt.Errorf(resolverCreationErrorTemplateConstant, resolverError)
		}
		resolver = namespaceResolver

		if len(options.configuration.JournalDirectory) > 0 {
			fileJournal, journalError := OpenFileJournal(options.configuration.JournalDirectory)
			if journalError != nil {
				return fmt.Errorf(journalCreationErrorTemplateConstant, journalError)
			}
			defer func() {
				_ = fileJournal.Close()
			}()
			journal = fileJournal
		}
	}

	executor, executorError := builder.resolveExecutor(command, logger)
	if executorError != nil {
		return executorError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:            logger,
		SourceClient:      sourceClient,
		DestinationClient: destinationOperations(destinationClient),
		Resolver:          resolverOrPlaceholder(resolver),
		GitExecutor:       executor,
		Journal:           journal,
	})
	if serviceError != nil {
		return serviceError
	}

	result, migrationError := service.Execute(command.Context(), MigrationOptions{
		SourceGroupID:            options.configuration.SourceGroupID,
		SourceGroupPath:          options.configuration.SourceGroupPath,
		DestinationRootGroupID:   options.configuration.DestinationRootGroupID,
		DestinationRootGroupPath: options.configuration.DestinationRootGroupPath,
		WorkspaceDirectory:       options.configuration.WorkspaceDirectory,
		ProjectVisibility:        options.configuration.ProjectVisibility,
		TransferLFS:              options.configuration.TransferLFS,
		DryRun:                   options.dryRun,
	})

	logger.Info(
		logMessageMigrationCompletedConstant,
		zap.Int(logFieldMigratedCountConstant, len(result.MigratedProjects)),
		zap.Int(logFieldFailedCountConstant, len(result.FailedProjects)),
	)

	if migrationError != nil {
		return fmt.Errorf(migrationCommandErrorTemplateConstant, migrationError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	flags := command.Flags()

	if flags.Changed(sourceURLFlagNameConstant) {
		configuration.SourceBaseURL, _ = flags.GetString(sourceURLFlagNameConstant)
	}
	if flags.Changed(sourceGroupIDFlagNameConstant) {
		configuration.SourceGroupID, _ = flags.GetInt64(sourceGroupIDFlagNameConstant)
	}
	if flags.Changed(sourceGroupPathFlagNameConstant) {
		configuration.SourceGroupPath, _ = flags.GetString(sourceGroupPathFlagNameConstant)
	}
	if flags.Changed(destinationURLFlagNameConstant) {
		configuration.DestinationBaseURL, _ = flags.GetString(destinationURLFlagNameConstant)
	}
	if flags.Changed(destinationGroupIDFlagNameConstant) {
		configuration.DestinationRootGroupID, _ = flags.GetInt64(destinationGroupIDFlagNameConstant)
	}
	if flags.Changed(destinationGroupPathFlagNameConstant) {
		configuration.DestinationRootGroupPath, _ = flags.GetString(destinationGroupPathFlagNameConstant)
	}
	if flags.Changed(workspaceFlagNameConstant) {
		configuration.WorkspaceDirectory, _ = flags.GetString(workspaceFlagNameConstant)
	}
	if flags.Changed(journalFlagNameConstant) {
		configuration.JournalDirectory, _ = flags.GetString(journalFlagNameConstant)
	}
	if flags.Changed(visibilityFlagNameConstant) {
		configuration.ProjectVisibility, _ = flags.GetString(visibilityFlagNameConstant)
	}
	if flags.Changed(lfsFlagNameConstant) {
		configuration.TransferLFS, _ = flags.GetBool(lfsFlagNameConstant)
	}

	dryRun := false
	if flags.Changed(dryRunFlagNameConstant) {
		dryRun, _ = flags.GetBool(dryRunFlagNameConstant)
	}

	return commandOptions{configuration: configuration.Sanitize(), dryRun: dryRun}, nil
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

func (builder *CommandBuilder) resolveClient(options gitlabapi.ClientOptions) (*gitlabapi.Client, error) {
	if builder.ClientProvider != nil {
		return builder.ClientProvider(options)
	}
	return gitlabapi.NewClient(options)
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

// destinationOperations substitutes an inert destination when a dry run skips
// client construction.
func destinationOperations(client *gitlabapi.Client) DestinationOperations {
	if client == nil {
		return dryRunDestination{}
	}
	return client
}

func resolverOrPlaceholder(resolver NamespaceResolver) NamespaceResolver {
	if resolver == nil {
		return dryRunResolver{}
	}
	return resolver
}

type dryRunDestination struct{}

func (dryRunDestination) LookupProject(context.Context, string) (gitlabapi.ProjectDetails, bool, error) {
	return gitlabapi.ProjectDetails{}, false, nil
}

func (dryRunDestination) CreateProject(context.Context, gitlabapi.CreateProjectRequest) (gitlabapi.ProjectDetails, error) {
	return gitlabapi.ProjectDetails{}, nil
}

type dryRunResolver struct{}

func (dryRunResolver) Resolve(context.Context, string, int64) (int64, error) {
	return 0, nil
}
