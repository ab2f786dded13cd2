package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	flagPrefixConstant                      = "-"
)

const (
	gitCloneSubcommandNameConstant  = "clone"
	gitPushSubcommandNameConstant   = "push"
	gitMirrorFlagConstant           = "--mirror"
	lfsFetchSubcommandNameConstant  = "fetch"
	lfsPushSubcommandNameConstant   = "push"
	remoteArgumentFallbackConstant  = "remote"
	mirrorCloneStartTemplate        = "Mirroring repository from %s"
	mirrorCloneSuccessTemplate      = "Mirrored repository from %s"
	mirrorCloneFailureTemplate      = "Failed to mirror repository from %s (exit code %d%s)"
	mirrorCloneExecutionTemplate    = "Unable to mirror repository from %s: %s"
	mirrorPushStartTemplate         = "Pushing mirrored refs to %s"
	mirrorPushSuccessTemplate       = "Pushed mirrored refs to %s"
	mirrorPushFailureTemplate       = "Failed to push mirrored refs to %s (exit code %d%s)"
	mirrorPushExecutionTemplate     = "Unable to push mirrored refs to %s: %s"
	lfsTransferStartTemplate        = "Transferring LFS objects (%s %s)"
	lfsTransferSuccessTemplate      = "Transferred LFS objects (%s %s)"
	lfsTransferFailureTemplate      = "Failed to transfer LFS objects (%s %s, exit code %d%s)"
	lfsTransferExecutionTemplate    = "Unable to transfer LFS objects (%s %s): %s"
	minimumMirrorArgumentCountConst = 2
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandGitLFS:
		return formatter.describeLFSMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < minimumMirrorArgumentCountConst || !formatter.containsArgument(arguments, gitMirrorFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	remoteLabel := formatter.lastNonFlagArgument(arguments)

	switch arguments[0] {
	case gitCloneSubcommandNameConstant:
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(mirrorCloneStartTemplate, remoteLabel)
		case messageStageSuccess:
			return fmt.Sprintf(mirrorCloneSuccessTemplate, remoteLabel)
		case messageStageFailure:
			return fmt.Sprintf(mirrorCloneFailureTemplate, remoteLabel, result.ExitCode, formatter.standardErrorSuffix(result))
		default:
			return fmt.Sprintf(mirrorCloneExecutionTemplate, remoteLabel, formatter.failureDescription(failure))
		}
	case gitPushSubcommandNameConstant:
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(mirrorPushStartTemplate, remoteLabel)
		case messageStageSuccess:
			return fmt.Sprintf(mirrorPushSuccessTemplate, remoteLabel)
		case messageStageFailure:
			return fmt.Sprintf(mirrorPushFailureTemplate, remoteLabel, result.ExitCode, formatter.standardErrorSuffix(result))
		default:
			return fmt.Sprintf(mirrorPushExecutionTemplate, remoteLabel, formatter.failureDescription(failure))
		}
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeLFSMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := arguments[0]
	if subcommand != lfsFetchSubcommandNameConstant && subcommand != lfsPushSubcommandNameConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	remoteLabel := formatter.lastNonFlagArgument(arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(lfsTransferStartTemplate, subcommand, remoteLabel)
	case messageStageSuccess:
		return fmt.Sprintf(lfsTransferSuccessTemplate, subcommand, remoteLabel)
	case messageStageFailure:
		return fmt.Sprintf(lfsTransferFailureTemplate, subcommand, remoteLabel, result.ExitCode, formatter.standardErrorSuffix(result))
	default:
		return fmt.Sprintf(lfsTransferExecutionTemplate, subcommand, remoteLabel, formatter.failureDescription(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.buildCommandLabel(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.standardErrorSuffix(result))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.failureDescription(failure))
	}
}

func (formatter CommandMessageFormatter) buildCommandLabel(command ShellCommand) string {
	argumentsLabel := emptyStringConstant
	if len(command.Details.Arguments) > 0 {
		argumentsLabel = commandArgumentsJoinSeparatorConstant + strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant)
	}

	label := fmt.Sprintf(commandLabelTemplateConstant, command.Name, argumentsLabel)
	if len(command.Details.WorkingDirectory) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
	}
	return label
}

func (formatter CommandMessageFormatter) standardErrorSuffix(result ExecutionResult) string {
	trimmedStandardError := strings.TrimSpace(result.StandardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) failureDescription(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) containsArgument(arguments []string, requested string) bool {
	for _, argument := range arguments {
		if argument == requested {
			return true
		}
	}
	return false
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	for argumentIndex := len(arguments) - 1; argumentIndex >= 0; argumentIndex-- {
		candidate := strings.TrimSpace(arguments[argumentIndex])
		if len(candidate) == 0 {
			continue
		}
		if strings.HasPrefix(candidate, flagPrefixConstant) {
			continue
		}
		return candidate
	}
	return remoteArgumentFallbackConstant
}
