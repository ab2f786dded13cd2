package locales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandBuilderBuildRegistersFlags(testInstance *testing.T) {
	builder := &CommandBuilder{}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, commandUseConstant, command.Use)

	expectedFlagNames := []string{
		bundleURLFlagNameConstant,
		themeDirectoryFlagNameConstant,
		localesSubdirectoryFlagNameConstant,
		stagingDirectoryFlagNameConstant,
	}
	for _, flagName := range expectedFlagNames {
		require.NotNil(testInstance, command.Flags().Lookup(flagName), flagName)
	}
}

func TestCommandRunReportsValidationFailures(testInstance *testing.T) {
	builder := &CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		Downloader:     &recordingDownloader{},
		Executor:       &extractingExecutor{testReference: testInstance},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{})
	executionError := command.ExecuteContext(context.Background())
	require.Error(testInstance, executionError)

	var inputError InvalidInputError
	require.ErrorAs(testInstance, executionError, &inputError)
	require.Equal(testInstance, bundleURLFieldNameConstant, inputError.FieldName)
}
