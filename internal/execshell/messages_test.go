package execshell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glim/internal/execshell"
)

const (
	testMirrorCloneMessageCaseNameConstant = "mirror_clone"
	testMirrorPushMessageCaseNameConstant  = "mirror_push"
	testLFSFetchMessageCaseNameConstant    = "lfs_fetch"
	testGenericMessageCaseNameConstant     = "generic_rsync"
	testSourceRemoteURLConstant            = "https://gitlab.example.com/team/project.git"
)

func TestCommandMessageFormatterStartMessages(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}

	testCases := []struct {
		name            string
		command         execshell.ShellCommand
		expectedMessage string
	}{
		{
			name: testMirrorCloneMessageCaseNameConstant,
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"clone", "--mirror", testSourceRemoteURLConstant}},
			},
			expectedMessage: "Mirroring repository from " + testSourceRemoteURLConstant,
		},
		{
			name: testMirrorPushMessageCaseNameConstant,
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"push", "--mirror", testSourceRemoteURLConstant}},
			},
			expectedMessage: "Pushing mirrored refs to " + testSourceRemoteURLConstant,
		},
		{
			name: testLFSFetchMessageCaseNameConstant,
			command: execshell.ShellCommand{
				Name:    execshell.CommandGitLFS,
				Details: execshell.CommandDetails{Arguments: []string{"fetch", "--all", "origin"}},
			},
			expectedMessage: "Transferring LFS objects (fetch origin)",
		},
		{
			name: testGenericMessageCaseNameConstant,
			command: execshell.ShellCommand{
				Name:    execshell.CommandRsync,
				Details: execshell.CommandDetails{Arguments: []string{"-a", "source/", "target/"}},
			},
			expectedMessage: "Running rsync -a source/ target/",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedMessage, formatter.BuildStartedMessage(testCase.command))
		})
	}
}

func TestCommandMessageFormatterFailureIncludesStandardError(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}

	command := execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"push", "--mirror", testSourceRemoteURLConstant}},
	}
	result := execshell.ExecutionResult{ExitCode: 128, StandardError: "remote: access denied"}

	message := formatter.BuildFailureMessage(command, result)
	require.Contains(testInstance, message, "exit code 128")
	require.Contains(testInstance, message, "remote: access denied")
	require.Contains(testInstance, message, testSourceRemoteURLConstant)
}
