package locales

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/temirov/glim/internal/execshell"
)

const (
	bundleArchiveFileNameConstant          = "bundle.zip"
	extractedDirectoryNameConstant         = "extracted"
	mergedDirectoryNameConstant            = "merged"
	stagingDirectoryPatternConstant        = "glim-locales-"
	stagingPermissionsConstant             = 0o755
	translationFilePermissionsConstant     = 0o644
	yamlExtensionConstant                  = ".yml"
	yamlLongExtensionConstant              = ".yaml"
	trailingSlashConstant                  = "/"
	rsyncArchiveFlagConstant               = "-a"
	unzipOverwriteFlagConstant             = "-o"
	unzipDestinationFlagConstant           = "-d"
	bundleURLFieldNameConstant             = "bundle_url"
	themeDirectoryFieldNameConstant        = "theme_directory"
	requiredValueMessageConstant           = "value required"
	invalidInputTemplateConstant           = "%s: %s"
	executorMissingMessageConstant         = "shell executor not configured"
	downloadErrorTemplateConstant          = "bundle download failed: %w"
	downloadStatusErrorTemplateConstant    = "bundle download failed: %s returned status %d"
	stagingErrorTemplateConstant           = "unable to prepare staging directory: %w"
	extractionErrorTemplateConstant        = "bundle extraction failed: %w"
	translationWalkErrorTemplateConstant   = "unable to scan extracted bundle: %w"
	translationMergeErrorTemplateConstant  = "unable to merge translation %s: %w"
	synchronizationErrorTemplateConstant   = "theme synchronization failed: %w"
	logMessageBundleDownloadedConstant     = "Localization bundle downloaded"
	logMessageTranslationMergedConstant    = "Translation merged"
	logMessageTranslationStagedConstant    = "Translation staged without counterpart"
	logMessageThemeSynchronizedConstant    = "Theme locales synchronized"
	logFieldBundleURLConstant              = "bundle_url"
	logFieldTranslationConstant            = "translation"
	logFieldThemeLocalesDirectoryConstant  = "theme_locales_directory"
	logFieldMergedTranslationCountConstant = "merged"
	logFieldStagedTranslationCountConstant = "staged"
)

// BundleDownloader fetches a localization bundle archive to a local path.
type BundleDownloader interface {
	Download(executionContext context.Context, bundleURL string, destinationPath string) error
}

// CommandExecutor is the subset of execshell.ShellExecutor the merge requires.
type CommandExecutor interface {
	ExecuteUnzip(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteRsync(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// InvalidInputError describes locales option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

var errExecutorMissing = errors.New(executorMissingMessageConstant)

// ServiceDependencies describes required collaborators for the locales merge.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Downloader BundleDownloader
	Executor   CommandExecutor
}

// MergeOptions configures one bundle merge run.
type MergeOptions struct {
	BundleURL           string
	ThemeDirectory      string
	LocalesSubdirectory string
	StagingDirectory    string
}

// MergeResult summarizes a completed merge.
type MergeResult struct {
	MergedTranslations []string
	StagedTranslations []string
}

// Service downloads, merges, and synchronizes localization bundles.
type Service struct {
	logger     *zap.Logger
	downloader BundleDownloader
	executor   CommandExecutor
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Executor == nil {
		return nil, errExecutorMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	downloader := dependencies.Downloader
	if downloader == nil {
		downloader = NewHTTPBundleDownloader()
	}

	return &Service{logger: logger, downloader: downloader, executor: dependencies.Executor}, nil
}

// Execute downloads the bundle, merges its translations over the theme copies,
// and syncs the merged tree into the theme locales directory.
func (service *Service) Execute(executionContext context.Context, options MergeOptions) (MergeResult, error) {
	if validationError := validateOptions(options); validationError != nil {
		return MergeResult{}, validationError
	}

	stagingDirectory, cleanupStaging, stagingError := prepareStagingDirectory(options.StagingDirectory)
	if stagingError != nil {
		return MergeResult{}, fmt.Errorf(stagingErrorTemplateConstant, stagingError)
	}
	defer cleanupStaging()

	archivePath := filepath.Join(stagingDirectory, bundleArchiveFileNameConstant)
	if downloadError := service.downloader.Download(executionContext, options.BundleURL, archivePath); downloadError != nil {
		return MergeResult{}, fmt.Errorf(downloadErrorTemplateConstant, downloadError)
	}
	service.logger.Info(logMessageBundleDownloadedConstant, zap.String(logFieldBundleURLConstant, options.BundleURL))

	extractedDirectory := filepath.Join(stagingDirectory, extractedDirectoryNameConstant)
	if _, extractionError := service.executor.ExecuteUnzip(executionContext, execshell.CommandDetails{
		Arguments: []string{unzipOverwriteFlagConstant, archivePath, unzipDestinationFlagConstant, extractedDirectory},
	}); extractionError != nil {
		return MergeResult{}, fmt.Errorf(extractionErrorTemplateConstant, extractionError)
	}

	themeLocalesDirectory := filepath.Join(options.ThemeDirectory, options.LocalesSubdirectory)
	mergedDirectory := filepath.Join(stagingDirectory, mergedDirectoryNameConstant)

	result, mergeError := service.mergeTranslations(extractedDirectory, themeLocalesDirectory, mergedDirectory)
	if mergeError != nil {
		return MergeResult{}, mergeError
	}

	if _, syncError := service.executor.ExecuteRsync(executionContext, execshell.CommandDetails{
		Arguments: []string{
			rsyncArchiveFlagConstant,
			mergedDirectory + trailingSlashConstant,
			themeLocalesDirectory + trailingSlashConstant,
		},
	}); syncError != nil {
		return MergeResult{}, fmt.Errorf(synchronizationErrorTemplateConstant, syncError)
	}

	service.logger.Info(
		logMessageThemeSynchronizedConstant,
		zap.String(logFieldThemeLocalesDirectoryConstant, themeLocalesDirectory),
		zap.Int(logFieldMergedTranslationCountConstant, len(result.MergedTranslations)),
		zap.Int(logFieldStagedTranslationCountConstant, len(result.StagedTranslations)),
	)

	return result, nil
}

// mergeTranslations walks the extracted bundle and produces the merged staging
// tree: translations with a theme counterpart are deep-merged, the rest are
// copied as is.
func (service *Service) mergeTranslations(extractedDirectory string, themeLocalesDirectory string, mergedDirectory string) (MergeResult, error) {
	result := MergeResult{}

	walkError := filepath.WalkDir(extractedDirectory, func(entryPath string, entry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return visitError
		}
		if entry.IsDir() || !isTranslationFile(entryPath) {
			return nil
		}

		relativePath, relativeError := filepath.Rel(extractedDirectory, entryPath)
		if relativeError != nil {
			return relativeError
		}

		bundleDocument, readBundleError := os.ReadFile(entryPath)
		if readBundleError != nil {
			return readBundleError
		}

		mergedPath := filepath.Join(mergedDirectory, relativePath)
		if mkdirError := os.MkdirAll(filepath.Dir(mergedPath), stagingPermissionsConstant); mkdirError != nil {
			return mkdirError
		}

		themeDocument, readThemeError := os.ReadFile(filepath.Join(themeLocalesDirectory, relativePath))
		if readThemeError != nil {
			if !errors.Is(readThemeError, fs.ErrNotExist) {
				return readThemeError
			}

			if writeError := os.WriteFile(mergedPath, bundleDocument, translationFilePermissionsConstant); writeError != nil {
				return writeError
			}
			service.logger.Debug(logMessageTranslationStagedConstant, zap.String(logFieldTranslationConstant, relativePath))
			result.StagedTranslations = append(result.StagedTranslations, relativePath)
			return nil
		}

		mergedDocument, documentError := mergeTranslationDocuments(themeDocument, bundleDocument)
		if documentError != nil {
			return fmt.Errorf(translationMergeErrorTemplateConstant, relativePath, documentError)
		}

		if writeError := os.WriteFile(mergedPath, mergedDocument, translationFilePermissionsConstant); writeError != nil {
			return writeError
		}
		service.logger.Debug(logMessageTranslationMergedConstant, zap.String(logFieldTranslationConstant, relativePath))
		result.MergedTranslations = append(result.MergedTranslations, relativePath)
		return nil
	})
	if walkError != nil {
		return MergeResult{}, fmt.Errorf(translationWalkErrorTemplateConstant, walkError)
	}

	return result, nil
}

func validateOptions(options MergeOptions) error {
	if len(strings.TrimSpace(options.BundleURL)) == 0 {
		return InvalidInputError{FieldName: bundleURLFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.ThemeDirectory)) == 0 {
		return InvalidInputError{FieldName: themeDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

// prepareStagingDirectory reuses a configured staging directory or creates a
// temporary one that gets removed once the run completes.
func prepareStagingDirectory(configuredDirectory string) (string, func(), error) {
	if len(configuredDirectory) > 0 {
		if mkdirError := os.MkdirAll(configuredDirectory, stagingPermissionsConstant); mkdirError != nil {
			return "", nil, mkdirError
		}
		return configuredDirectory, func() {}, nil
	}

	temporaryDirectory, tempError := os.MkdirTemp("", stagingDirectoryPatternConstant)
	if tempError != nil {
		return "", nil, tempError
	}
	return temporaryDirectory, func() { _ = os.RemoveAll(temporaryDirectory) }, nil
}

func isTranslationFile(entryPath string) bool {
	extension := strings.ToLower(filepath.Ext(entryPath))
	return extension == yamlExtensionConstant || extension == yamlLongExtensionConstant
}

// HTTPBundleDownloader fetches bundles over HTTP with resty.
type HTTPBundleDownloader struct {
	httpClient *resty.Client
}

// NewHTTPBundleDownloader constructs a downloader with its own HTTP client.
func NewHTTPBundleDownloader() *HTTPBundleDownloader {
	return &HTTPBundleDownloader{httpClient: resty.New()}
}

// Download writes the archive at bundleURL to destinationPath.
func (downloader *HTTPBundleDownloader) Download(executionContext context.Context, bundleURL string, destinationPath string) error {
	response, requestError := downloader.httpClient.R().
		SetContext(executionContext).
		Get(bundleURL)
	if requestError != nil {
		return requestError
	}
	if response.IsError() {
		return fmt.Errorf(downloadStatusErrorTemplateConstant, bundleURL, response.StatusCode())
	}

	return os.WriteFile(destinationPath, response.Bytes(), translationFilePermissionsConstant)
}
