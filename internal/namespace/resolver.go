package namespace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/glim/internal/gitlabapi"
)

const (
	pathSeparatorConstant                 = "/"
	groupAPIMissingMessageConstant        = "group API not configured"
	creationErrorTemplateConstant         = "unable to create group %q for namespace %q: %s"
	creationErrorNoMessageTemplate        = "unable to create group %q for namespace %q"
	logMessageSubgroupCreatedConstant     = "Created destination subgroup"
	logMessageNamespaceResolvedConstant   = "Resolved destination namespace"
	logFieldNamespacePathConstant         = "namespace_path"
	logFieldSegmentConstant               = "segment"
	logFieldParentGroupIdentifierConstant = "parent_group_id"
	logFieldGroupIdentifierConstant       = "group_id"
	logFieldCacheHitConstant              = "cache_hit"
)

// GroupAPI is the subset of the GitLab client needed to materialize namespaces.
type GroupAPI interface {
	ListSubgroups(executionContext context.Context, parentGroupID int64, searchTerm string) ([]gitlabapi.GroupSummary, error)
	CreateGroup(executionContext context.Context, name string, path string, parentGroupID int64) (gitlabapi.GroupSummary, error)
}

// ErrGroupAPIMissing indicates the resolver was constructed without a client.
var ErrGroupAPIMissing = errors.New(groupAPIMissingMessageConstant)

// CreationError reports a namespace segment the destination refused to create.
type CreationError struct {
	NamespacePath string
	Segment       string
	RemoteMessage string
	Cause         error
}

// Error describes the failed creation including the remote diagnostics.
func (creationError CreationError) Error() string {
	if len(creationError.RemoteMessage) == 0 {
		return fmt.Sprintf(creationErrorNoMessageTemplate, creationError.Segment, creationError.NamespacePath)
	}
	return fmt.Sprintf(creationErrorTemplateConstant, creationError.Segment, creationError.NamespacePath, creationError.RemoteMessage)
}

// Unwrap exposes the underlying client error when one exists.
func (creationError CreationError) Unwrap() error {
	return creationError.Cause
}

// Resolver materializes slash-delimited namespace paths as destination group
// chains, creating missing groups one level at a time.
//
// Resolved leaf identifiers are cached for the lifetime of the resolver, so a
// resolver instance must not outlive the migration run that owns it. The
// resolver is not safe for concurrent use; the driver processes one project at
// a time.
type Resolver struct {
	logger        *zap.Logger
	groupAPI      GroupAPI
	resolvedPaths map[string]int64
}

// NewResolver constructs a Resolver with an empty run-scoped cache.
func NewResolver(logger *zap.Logger, groupAPI GroupAPI) (*Resolver, error) {
	if groupAPI == nil {
		return nil, ErrGroupAPIMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		logger:        logger,
		groupAPI:      groupAPI,
		resolvedPaths: map[string]int64{},
	}, nil
}

// Resolve returns the identifier of the deepest group on the given relative
// path beneath rootGroupID, creating any missing intermediate groups.
//
// An empty path maps directly to the root group. Previously resolved paths are
// answered from the cache without network calls. Partial failures need no
// rollback: groups created before the failing segment remain valid and are
// found by lookup on a later attempt.
func (resolver *Resolver) Resolve(executionContext context.Context, relativePath string, rootGroupID int64) (int64, error) {
	segments := splitNamespacePath(relativePath)
	if len(segments) == 0 {
		return rootGroupID, nil
	}

	normalizedPath := strings.Join(segments, pathSeparatorConstant)
	if cachedGroupID, cacheHit := resolver.resolvedPaths[normalizedPath]; cacheHit {
		resolver.logger.Debug(
			logMessageNamespaceResolvedConstant,
			zap.String(logFieldNamespacePathConstant, normalizedPath),
			zap.Int64(logFieldGroupIdentifierConstant, cachedGroupID),
			zap.Bool(logFieldCacheHitConstant, true),
		)
		return cachedGroupID, nil
	}

	currentParentID := rootGroupID
	for _, segment := range segments {
		segmentGroupID, segmentError := resolver.resolveSegment(executionContext, normalizedPath, segment, currentParentID)
		if segmentError != nil {
			return 0, segmentError
		}
		currentParentID = segmentGroupID
	}

	resolver.resolvedPaths[normalizedPath] = currentParentID

	resolver.logger.Debug(
		logMessageNamespaceResolvedConstant,
		zap.String(logFieldNamespacePathConstant, normalizedPath),
		zap.Int64(logFieldGroupIdentifierConstant, currentParentID),
		zap.Bool(logFieldCacheHitConstant, false),
	)

	return currentParentID, nil
}

// resolveSegment finds the subgroup whose path equals segment beneath the
// parent, creating it when absent.
func (resolver *Resolver) resolveSegment(executionContext context.Context, namespacePath string, segment string, parentGroupID int64) (int64, error) {
	subgroups, listError := resolver.groupAPI.ListSubgroups(executionContext, parentGroupID, segment)
	if listError != nil {
		return 0, CreationError{
			NamespacePath: namespacePath,
			Segment:       segment,
			RemoteMessage: listError.Error(),
			Cause:         listError,
		}
	}

	// The remote search matches substrings, so a search for "team" also
	// returns "team-tools"; only an exact path match may be reused.
	for _, subgroup := range subgroups {
		if subgroup.Path == segment {
			return subgroup.ID, nil
		}
	}

	createdGroup, createError := resolver.groupAPI.CreateGroup(executionContext, segment, segment, parentGroupID)
	if createError != nil {
		remoteMessage := createError.Error()
		var apiError gitlabapi.APIError
		if errors.As(createError, &apiError) {
			remoteMessage = apiError.RemoteMessage
		}
		return 0, CreationError{
			NamespacePath: namespacePath,
			Segment:       segment,
			RemoteMessage: remoteMessage,
			Cause:         createError,
		}
	}

	if createdGroup.ID == 0 {
		return 0, CreationError{
			NamespacePath: namespacePath,
			Segment:       segment,
		}
	}

	resolver.logger.Info(
		logMessageSubgroupCreatedConstant,
		zap.String(logFieldNamespacePathConstant, namespacePath),
		zap.String(logFieldSegmentConstant, segment),
		zap.Int64(logFieldParentGroupIdentifierConstant, parentGroupID),
		zap.Int64(logFieldGroupIdentifierConstant, createdGroup.ID),
	)

	return createdGroup.ID, nil
}

// splitNamespacePath normalizes a slash-delimited relative path into its
// non-empty segments. Stray separators collapse; a path with no segments is
// the sentinel meaning "no sub-path".
func splitNamespacePath(relativePath string) []string {
	rawSegments := strings.Split(relativePath, pathSeparatorConstant)
	segments := make([]string, 0, len(rawSegments))
	for _, rawSegment := range rawSegments {
		trimmedSegment := strings.TrimSpace(rawSegment)
		if len(trimmedSegment) == 0 {
			continue
		}
		segments = append(segments, trimmedSegment)
	}
	return segments
}
