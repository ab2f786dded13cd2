package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/glim/internal/gitlabapi"
)

const (
	sourceTokenVariableTestConstant = "GLIM_TEST_SOURCE_TOKEN"
	sourceTokenValueTestConstant    = "source-token"
	dryRunFlagArgumentConstant      = "--dry-run"
)

func testCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SourceBaseURL:       "https://source.example.com",
		SourceTokenVariable: sourceTokenVariableTestConstant,
		SourceGroupID:       4,
		SourceGroupPath:     sourceGroupPathTestConstant,
	}
}

func TestCommandBuilderBuildRegistersFlags(testInstance *testing.T) {
	builder := &CommandBuilder{}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, commandUseConstant, command.Use)

	expectedFlagNames := []string{
		sourceURLFlagNameConstant,
		sourceGroupIDFlagNameConstant,
		sourceGroupPathFlagNameConstant,
		destinationURLFlagNameConstant,
		destinationGroupIDFlagNameConstant,
		destinationGroupPathFlagNameConstant,
		workspaceFlagNameConstant,
		journalFlagNameConstant,
		visibilityFlagNameConstant,
		lfsFlagNameConstant,
		dryRunFlagNameConstant,
	}
	for _, flagName := range expectedFlagNames {
		require.NotNil(testInstance, command.Flags().Lookup(flagName), flagName)
	}

	lfsFlag := command.Flags().Lookup(lfsFlagNameConstant)
	require.Equal(testInstance, "true", lfsFlag.NoOptDefVal)
}

func TestCommandRunRequiresSourceToken(testInstance *testing.T) {
	testInstance.Setenv(sourceTokenVariableTestConstant, "")

	builder := &CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: testCommandConfiguration,
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{dryRunFlagArgumentConstant})
	executionError := command.ExecuteContext(context.Background())
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), sourceTokenVariableTestConstant)
}

func TestCommandRunDryRunSkipsDestinationCalls(testInstance *testing.T) {
	testInstance.Setenv(sourceTokenVariableTestConstant, sourceTokenValueTestConstant)

	resolver := &recordingNamespaceResolver{resolvedID: 42}
	destinationOps := &recordingDestinationOperations{}
	executor := &recordingCommandExecutor{}
	var providerCalled bool

	builder := &CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: testCommandConfiguration,
		ClientProvider: func(options gitlabapi.ClientOptions) (*gitlabapi.Client, error) {
			require.Equal(testInstance, sourceTokenValueTestConstant, options.PrivateToken)
			return &gitlabapi.Client{}, nil
		},
		ServiceProvider: func(dependencies ServiceDependencies) (*Service, error) {
			providerCalled = true
			dependencies.SourceClient = &recordingSourceOperations{projects: []gitlabapi.ProjectDetails{nestedSourceProject()}}
			dependencies.DestinationClient = destinationOps
			dependencies.Resolver = resolver
			return NewService(dependencies)
		},
		Executor: executor,
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{dryRunFlagArgumentConstant})
	executionError := command.ExecuteContext(context.Background())
	require.NoError(testInstance, executionError)

	require.True(testInstance, providerCalled)
	require.Empty(testInstance, resolver.resolvedPaths)
	require.Empty(testInstance, destinationOps.lookupCalls)
	require.Empty(testInstance, executor.executedCommands)
}
