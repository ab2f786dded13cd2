package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/glim/internal/execshell"
	"github.com/temirov/glim/internal/gitlabapi"
)

const (
	namespaceSeparatorConstant               = "/"
	mirrorDirectoryNameConstant              = "mirror.git"
	workspacePermissionsConstant             = 0o755
	gitCloneSubcommandConstant               = "clone"
	gitPushSubcommandConstant                = "push"
	gitMirrorFlagNameConstant                = "--mirror"
	lfsFetchSubcommandConstant               = "fetch"
	lfsPushSubcommandConstant                = "push"
	lfsAllFlagNameConstant                   = "--all"
	sourceGroupFieldNameConstant             = "source_group_id"
	destinationRootGroupFieldNameConstant    = "destination_root_group_id"
	workspaceDirectoryFieldNameConstant      = "workspace_directory"
	requiredValueMessageConstant             = "value required"
	invalidInputTemplateConstant             = "%s: %s"
	sourceClientMissingMessageConstant       = "source client not configured"
	destinationClientMissingMessageConstant  = "destination client not configured"
	namespaceResolverMissingMessageConstant  = "namespace resolver not configured"
	gitExecutorMissingMessageConstant        = "git executor not configured"
	projectListErrorTemplateConstant         = "unable to list source projects: %w"
	namespaceResolutionErrorTemplateConstant = "namespace resolution failed: %w"
	projectEnsureErrorTemplateConstant       = "unable to ensure destination project: %w"
	projectRecheckErrorTemplateConstant      = "destination reported project exists but lookup found none: %s"
	workspaceErrorTemplateConstant           = "unable to prepare workspace: %w"
	mirrorCloneErrorTemplateConstant         = "mirror clone failed: %w"
	mirrorPushErrorTemplateConstant          = "mirror push failed: %w"
	lfsFetchErrorTemplateConstant            = "lfs fetch failed: %w"
	lfsPushErrorTemplateConstant             = "lfs push failed: %w"
	projectMigrationErrorTemplateConstant    = "project %s: %w"
	logMessageMigrationPlannedConstant       = "Migration planned"
	logMessageProjectMigratedConstant        = "Project migrated"
	logMessageProjectFailedConstant          = "Project migration failed"
	logMessageProjectExistsConstant          = "Destination project already exists, reusing it"
	logFieldProjectConstant                  = "project"
	logFieldDestinationConstant              = "destination"
	logFieldNamespaceConstant                = "namespace"
	logFieldRemoteMessageConstant            = "remote_message"
)

// SourceOperations lists projects on the source instance.
type SourceOperations interface {
	ListGroupProjects(executionContext context.Context, groupID int64) ([]gitlabapi.ProjectDetails, error)
}

// DestinationOperations manages projects on the destination instance.
type DestinationOperations interface {
	LookupProject(executionContext context.Context, pathWithNamespace string) (gitlabapi.ProjectDetails, bool, error)
	CreateProject(executionContext context.Context, request gitlabapi.CreateProjectRequest) (gitlabapi.ProjectDetails, error)
}

// NamespaceResolver materializes destination group chains for relative paths.
type NamespaceResolver interface {
	Resolve(executionContext context.Context, relativePath string, rootGroupID int64) (int64, error)
}

// CommandExecutor is the subset of execshell.ShellExecutor migration requires.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitLFS(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// OutcomeRecorder persists per-project migration outcomes.
type OutcomeRecorder interface {
	RecordSuccess(projectPath string, destinationURL string) error
	RecordFailure(projectPath string, failure error) error
}

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger            *zap.Logger
	SourceClient      SourceOperations
	DestinationClient DestinationOperations
	Resolver          NamespaceResolver
	GitExecutor       CommandExecutor
	Journal           OutcomeRecorder
}

// MigrationOptions configures one migration run.
type MigrationOptions struct {
	SourceGroupID            int64
	SourceGroupPath          string
	DestinationRootGroupID   int64
	DestinationRootGroupPath string
	WorkspaceDirectory       string
	ProjectVisibility        string
	TransferLFS              bool
	DryRun                   bool
}

// MigrationResult captures the observable outcomes of a run.
type MigrationResult struct {
	MigratedProjects []string
	FailedProjects   []string
}

var (
	errSourceClientMissing      = errors.New(sourceClientMissingMessageConstant)
	errDestinationClientMissing = errors.New(destinationClientMissingMessageConstant)
	errNamespaceResolverMissing = errors.New(namespaceResolverMissingMessageConstant)
	errGitExecutorMissing       = errors.New(gitExecutorMissingMessageConstant)
)

// Service orchestrates the per-project migration loop.
type Service struct {
	logger            *zap.Logger
	sourceClient      SourceOperations
	destinationClient DestinationOperations
	resolver          NamespaceResolver
	gitExecutor       CommandExecutor
	journal           OutcomeRecorder
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.SourceClient == nil {
		return nil, errSourceClientMissing
	}
	if dependencies.DestinationClient == nil {
		return nil, errDestinationClientMissing
	}
	if dependencies.Resolver == nil {
		return nil, errNamespaceResolverMissing
	}
	if dependencies.GitExecutor == nil {
		return nil, errGitExecutorMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	journal := dependencies.Journal
	if journal == nil {
		journal = noopOutcomeRecorder{}
	}

	return &Service{
		logger:            logger,
		sourceClient:      dependencies.SourceClient,
		destinationClient: dependencies.DestinationClient,
		resolver:          dependencies.Resolver,
		gitExecutor:       dependencies.GitExecutor,
		journal:           journal,
	}, nil
}

// Execute migrates every project beneath the configured source group.
//
// Failures are journaled per project and do not stop the run; the joined
// failure set is returned once every project has been attempted.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error) {
	if validationError := service.validateOptions(options); validationError != nil {
		return MigrationResult{}, validationError
	}

	sourceProjects, listError := service.sourceClient.ListGroupProjects(executionContext, options.SourceGroupID)
	if listError != nil {
		return MigrationResult{}, fmt.Errorf(projectListErrorTemplateConstant, listError)
	}

	result := MigrationResult{}
	var migrationErrors []error

	for _, sourceProject := range sourceProjects {
		migrationError := service.migrateProject(executionContext, options, sourceProject)
		if migrationError != nil {
			if errors.Is(migrationError, context.Canceled) || errors.Is(migrationError, context.DeadlineExceeded) {
				return result, migrationError
			}

			wrappedError := fmt.Errorf(projectMigrationErrorTemplateConstant, sourceProject.PathWithNamespace, migrationError)
			service.logger.Warn(
				logMessageProjectFailedConstant,
				zap.String(logFieldProjectConstant, sourceProject.PathWithNamespace),
				zap.Error(migrationError),
			)
			_ = service.journal.RecordFailure(sourceProject.PathWithNamespace, migrationError)
			result.FailedProjects = append(result.FailedProjects, sourceProject.PathWithNamespace)
			migrationErrors = append(migrationErrors, wrappedError)
			continue
		}

		result.MigratedProjects = append(result.MigratedProjects, sourceProject.PathWithNamespace)
	}

	if len(migrationErrors) > 0 {
		return result, errors.Join(migrationErrors...)
	}

	return result, nil
}

func (service *Service) validateOptions(options MigrationOptions) error {
	if options.SourceGroupID <= 0 {
		return InvalidInputError{FieldName: sourceGroupFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if !options.DryRun && options.DestinationRootGroupID <= 0 {
		return InvalidInputError{FieldName: destinationRootGroupFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if !options.DryRun && len(strings.TrimSpace(options.WorkspaceDirectory)) == 0 {
		return InvalidInputError{FieldName: workspaceDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

func (service *Service) migrateProject(executionContext context.Context, options MigrationOptions, sourceProject gitlabapi.ProjectDetails) error {
	relativeNamespace := relativeNamespacePath(sourceProject.PathWithNamespace, options.SourceGroupPath, sourceProject.Path)

	if options.DryRun {
		service.logger.Info(
			logMessageMigrationPlannedConstant,
			zap.String(logFieldProjectConstant, sourceProject.PathWithNamespace),
			zap.String(logFieldNamespaceConstant, relativeNamespace),
		)
		return nil
	}

	destinationParentID, resolveError := service.resolver.Resolve(executionContext, relativeNamespace, options.DestinationRootGroupID)
	if resolveError != nil {
		return fmt.Errorf(namespaceResolutionErrorTemplateConstant, resolveError)
	}

	destinationProject, ensureError := service.ensureDestinationProject(executionContext, options, sourceProject, relativeNamespace, destinationParentID)
	if ensureError != nil {
		return fmt.Errorf(projectEnsureErrorTemplateConstant, ensureError)
	}

	if transferError := service.transferRepository(executionContext, options, sourceProject, destinationProject); transferError != nil {
		return transferError
	}

	service.logger.Info(
		logMessageProjectMigratedConstant,
		zap.String(logFieldProjectConstant, sourceProject.PathWithNamespace),
		zap.String(logFieldDestinationConstant, destinationProject.PathWithNamespace),
	)
	_ = service.journal.RecordSuccess(sourceProject.PathWithNamespace, destinationProject.HTTPURLToRepo)

	return nil
}

// ensureDestinationProject looks the project up by path and creates it when
// absent. A creation rejected because the path is taken is treated as success
// and resolved by a second lookup.
func (service *Service) ensureDestinationProject(executionContext context.Context, options MigrationOptions, sourceProject gitlabapi.ProjectDetails, relativeNamespace string, destinationParentID int64) (gitlabapi.ProjectDetails, error) {
	destinationPath := joinNamespaceSegments(options.DestinationRootGroupPath, relativeNamespace, sourceProject.Path)

	existingProject, projectFound, lookupError := service.destinationClient.LookupProject(executionContext, destinationPath)
	if lookupError != nil {
		return gitlabapi.ProjectDetails{}, lookupError
	}
	if projectFound {
		return existingProject, nil
	}

	createdProject, createError := service.destinationClient.CreateProject(executionContext, gitlabapi.CreateProjectRequest{
		Name:        sourceProject.Name,
		Path:        sourceProject.Path,
		NamespaceID: destinationParentID,
		Description: sourceProject.Description,
		Visibility:  options.ProjectVisibility,
	})
	if createError == nil {
		return createdProject, nil
	}

	var apiError gitlabapi.APIError
	if errors.As(createError, &apiError) && apiError.IsAlreadyExists() {
		service.logger.Warn(
			logMessageProjectExistsConstant,
			zap.String(logFieldProjectConstant, destinationPath),
			zap.String(logFieldRemoteMessageConstant, apiError.RemoteMessage),
		)

		recheckedProject, recheckedFound, recheckError := service.destinationClient.LookupProject(executionContext, destinationPath)
		if recheckError != nil {
			return gitlabapi.ProjectDetails{}, recheckError
		}
		if !recheckedFound {
			return gitlabapi.ProjectDetails{}, fmt.Errorf(projectRecheckErrorTemplateConstant, destinationPath)
		}
		return recheckedProject, nil
	}

	return gitlabapi.ProjectDetails{}, createError
}

func (service *Service) transferRepository(executionContext context.Context, options MigrationOptions, sourceProject gitlabapi.ProjectDetails, destinationProject gitlabapi.ProjectDetails) error {
	if mkdirError := os.MkdirAll(options.WorkspaceDirectory, workspacePermissionsConstant); mkdirError != nil {
		return fmt.Errorf(workspaceErrorTemplateConstant, mkdirError)
	}

	temporaryDirectory, tempError := os.MkdirTemp(options.WorkspaceDirectory, sourceProject.Path+"-")
	if tempError != nil {
		return fmt.Errorf(workspaceErrorTemplateConstant, tempError)
	}
	defer func() {
		_ = os.RemoveAll(temporaryDirectory)
	}()

	mirrorDirectory := filepath.Join(temporaryDirectory, mirrorDirectoryNameConstant)

	if _, cloneError := service.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{gitCloneSubcommandConstant, gitMirrorFlagNameConstant, sourceProject.HTTPURLToRepo, mirrorDirectory},
	}); cloneError != nil {
		return fmt.Errorf(mirrorCloneErrorTemplateConstant, cloneError)
	}

	if options.TransferLFS {
		if _, fetchError := service.gitExecutor.ExecuteGitLFS(executionContext, execshell.CommandDetails{
			Arguments:        []string{lfsFetchSubcommandConstant, lfsAllFlagNameConstant},
			WorkingDirectory: mirrorDirectory,
		}); fetchError != nil {
			return fmt.Errorf(lfsFetchErrorTemplateConstant, fetchError)
		}
	}

	if _, pushError := service.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, gitMirrorFlagNameConstant, destinationProject.HTTPURLToRepo},
		WorkingDirectory: mirrorDirectory,
	}); pushError != nil {
		return fmt.Errorf(mirrorPushErrorTemplateConstant, pushError)
	}

	if options.TransferLFS {
		if _, lfsPushError := service.gitExecutor.ExecuteGitLFS(executionContext, execshell.CommandDetails{
			Arguments:        []string{lfsPushSubcommandConstant, lfsAllFlagNameConstant, destinationProject.HTTPURLToRepo},
			WorkingDirectory: mirrorDirectory,
		}); lfsPushError != nil {
			return fmt.Errorf(lfsPushErrorTemplateConstant, lfsPushError)
		}
	}

	return nil
}

// relativeNamespacePath extracts the namespace directories between the source
// group and the project itself from a full project path.
func relativeNamespacePath(pathWithNamespace string, sourceGroupPath string, projectPath string) string {
	relativePath := strings.Trim(pathWithNamespace, namespaceSeparatorConstant)

	trimmedGroupPath := strings.Trim(sourceGroupPath, namespaceSeparatorConstant)
	if len(trimmedGroupPath) > 0 {
		relativePath = strings.TrimPrefix(relativePath, trimmedGroupPath+namespaceSeparatorConstant)
	}

	relativePath = strings.TrimSuffix(relativePath, namespaceSeparatorConstant+projectPath)
	if relativePath == projectPath {
		return ""
	}
	return relativePath
}

func joinNamespaceSegments(segments ...string) string {
	nonEmptySegments := make([]string, 0, len(segments))
	for _, segment := range segments {
		trimmedSegment := strings.Trim(strings.TrimSpace(segment), namespaceSeparatorConstant)
		if len(trimmedSegment) == 0 {
			continue
		}
		nonEmptySegments = append(nonEmptySegments, trimmedSegment)
	}
	return strings.Join(nonEmptySegments, namespaceSeparatorConstant)
}

// noopOutcomeRecorder discards outcomes when no journal is configured.
type noopOutcomeRecorder struct{}

func (noopOutcomeRecorder) RecordSuccess(string, string) error { return nil }
func (noopOutcomeRecorder) RecordFailure(string, error) error  { return nil }
