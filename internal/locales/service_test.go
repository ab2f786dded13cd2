package locales

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/glim/internal/execshell"
)

const (
	bundleURLTestConstant           = "https://translations.example.com/bundle.zip"
	englishTranslationNameConstant  = "en.default.yml"
	frenchTranslationNameConstant   = "fr.yml"
	archivePayloadTestConstant      = "archive-bytes"
	themeEnglishDocumentConstant    = "general:\n  title: Theme Title\n  tagline: Theme Tagline\n"
	bundleEnglishDocumentConstant   = "general:\n  title: Bundle Title\n"
	bundleFrenchDocumentConstant    = "general:\n  titre: Titre\n"
	downloaderResponseTestConstant  = "zip-response-body"
	downloaderArchiveNameConstant   = "downloaded.zip"
)

type recordingDownloader struct {
	downloadedURLs []string
	payload        string
}

func (downloader *recordingDownloader) Download(_ context.Context, bundleURL string, destinationPath string) error {
	downloader.downloadedURLs = append(downloader.downloadedURLs, bundleURL)
	return os.WriteFile(destinationPath, []byte(downloader.payload), 0o644)
}

// extractingExecutor plays the unzip role by writing translation files into
// the extraction target and records the rsync invocation.
type extractingExecutor struct {
	translations  map[string]string
	unzipCalls    [][]string
	rsyncCalls    [][]string
	archiveBytes  []byte
	testReference *testing.T
}

func (executor *extractingExecutor) ExecuteUnzip(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.unzipCalls = append(executor.unzipCalls, details.Arguments)

	archivePath := details.Arguments[1]
	archiveContents, readError := os.ReadFile(archivePath)
	require.NoError(executor.testReference, readError)
	executor.archiveBytes = archiveContents

	extractionDirectory := details.Arguments[3]
	for translationName, translationDocument := range executor.translations {
		translationPath := filepath.Join(extractionDirectory, translationName)
		require.NoError(executor.testReference, os.MkdirAll(filepath.Dir(translationPath), 0o755))
		require.NoError(executor.testReference, os.WriteFile(translationPath, []byte(translationDocument), 0o644))
	}
	return execshell.ExecutionResult{}, nil
}

func (executor *extractingExecutor) ExecuteRsync(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.rsyncCalls = append(executor.rsyncCalls, details.Arguments)
	return execshell.ExecutionResult{}, nil
}

func TestServiceExecuteMergesBundleIntoTheme(testInstance *testing.T) {
	themeDirectory := testInstance.TempDir()
	themeLocalesDirectory := filepath.Join(themeDirectory, defaultLocalesSubdirectoryConstant)
	require.NoError(testInstance, os.MkdirAll(themeLocalesDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(
		filepath.Join(themeLocalesDirectory, englishTranslationNameConstant),
		[]byte(themeEnglishDocumentConstant),
		0o644,
	))

	stagingDirectory := testInstance.TempDir()
	downloader := &recordingDownloader{payload: archivePayloadTestConstant}
	executor := &extractingExecutor{
		translations: map[string]string{
			englishTranslationNameConstant: bundleEnglishDocumentConstant,
			frenchTranslationNameConstant:  bundleFrenchDocumentConstant,
		},
		testReference: testInstance,
	}

	service, creationError := NewService(ServiceDependencies{
		Logger:     zap.NewNop(),
		Downloader: downloader,
		Executor:   executor,
	})
	require.NoError(testInstance, creationError)

	result, executionError := service.Execute(context.Background(), MergeOptions{
		BundleURL:           bundleURLTestConstant,
		ThemeDirectory:      themeDirectory,
		LocalesSubdirectory: defaultLocalesSubdirectoryConstant,
		StagingDirectory:    stagingDirectory,
	})
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, []string{bundleURLTestConstant}, downloader.downloadedURLs)
	require.Equal(testInstance, []byte(archivePayloadTestConstant), executor.archiveBytes)

	require.Equal(testInstance, []string{englishTranslationNameConstant}, result.MergedTranslations)
	require.Equal(testInstance, []string{frenchTranslationNameConstant}, result.StagedTranslations)

	mergedEnglish, readMergedError := os.ReadFile(
		filepath.Join(stagingDirectory, mergedDirectoryNameConstant, englishTranslationNameConstant),
	)
	require.NoError(testInstance, readMergedError)
	require.Contains(testInstance, string(mergedEnglish), "Bundle Title")
	require.Contains(testInstance, string(mergedEnglish), "Theme Tagline")

	stagedFrench, readStagedError := os.ReadFile(
		filepath.Join(stagingDirectory, mergedDirectoryNameConstant, frenchTranslationNameConstant),
	)
	require.NoError(testInstance, readStagedError)
	require.Equal(testInstance, bundleFrenchDocumentConstant, string(stagedFrench))

	require.Len(testInstance, executor.rsyncCalls, 1)
	rsyncArguments := executor.rsyncCalls[0]
	require.Equal(testInstance, rsyncArchiveFlagConstant, rsyncArguments[0])
	require.Equal(testInstance, filepath.Join(stagingDirectory, mergedDirectoryNameConstant)+trailingSlashConstant, rsyncArguments[1])
	require.Equal(testInstance, themeLocalesDirectory+trailingSlashConstant, rsyncArguments[2])
}

func TestServiceExecuteValidatesOptions(testInstance *testing.T) {
	service, creationError := NewService(ServiceDependencies{
		Downloader: &recordingDownloader{},
		Executor:   &extractingExecutor{testReference: testInstance},
	})
	require.NoError(testInstance, creationError)

	testCases := []struct {
		name              string
		options           MergeOptions
		expectedFieldName string
	}{
		{
			name:              "missing_bundle_url",
			options:           MergeOptions{ThemeDirectory: "/tmp/theme"},
			expectedFieldName: bundleURLFieldNameConstant,
		},
		{
			name:              "missing_theme_directory",
			options:           MergeOptions{BundleURL: bundleURLTestConstant},
			expectedFieldName: themeDirectoryFieldNameConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, executionError := service.Execute(context.Background(), testCase.options)
			require.Error(subTest, executionError)

			var inputError InvalidInputError
			require.ErrorAs(subTest, executionError, &inputError)
			require.Equal(subTest, testCase.expectedFieldName, inputError.FieldName)
		})
	}
}

func TestNewServiceRequiresExecutor(testInstance *testing.T) {
	_, creationError := NewService(ServiceDependencies{})
	require.ErrorIs(testInstance, creationError, errExecutorMissing)
}

func TestHTTPBundleDownloader(testInstance *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		_, _ = responseWriter.Write([]byte(downloaderResponseTestConstant))
	}))
	defer testServer.Close()

	destinationPath := filepath.Join(testInstance.TempDir(), downloaderArchiveNameConstant)

	downloader := NewHTTPBundleDownloader()
	require.NoError(testInstance, downloader.Download(context.Background(), testServer.URL, destinationPath))

	downloadedContents, readError := os.ReadFile(destinationPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, downloaderResponseTestConstant, string(downloadedContents))
}

func TestHTTPBundleDownloaderReportsServerErrors(testInstance *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusNotFound)
	}))
	defer testServer.Close()

	downloader := NewHTTPBundleDownloader()
	downloadError := downloader.Download(
		context.Background(),
		testServer.URL,
		filepath.Join(testInstance.TempDir(), downloaderArchiveNameConstant),
	)
	require.Error(testInstance, downloadError)
}
