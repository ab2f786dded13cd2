package namespace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/glim/internal/gitlabapi"
	"github.com/temirov/glim/internal/namespace"
)

const (
	testRootGroupIDConstant              = int64(5)
	testEmptyPathCaseNameConstant        = "empty_path"
	testSentinelSlashCaseNameConstant    = "sentinel_bare_slash"
	testWhitespacePathCaseNameConstant   = "sentinel_whitespace"
	testTwoSegmentPathConstant           = "team/backend"
	testSingleSegmentPathConstant        = "team"
	testRemoteFailureMessageConstant     = "name has already been taken"
	testSubstringSiblingPathConstant     = "team-tools"
	testFirstCreatedGroupIDConstant      = int64(10)
	testSecondCreatedGroupIDConstant     = int64(11)
	testExistingSubgroupIDConstant       = int64(7)
	testListCallCountTwoSegmentsConstant = 2
)

type subgroupKey struct {
	parentID int64
	path     string
}

// fakeGroupAPI answers subgroup lookups from a fixed tree and assigns
// monotonically increasing identifiers to created groups.
type fakeGroupAPI struct {
	existingSubgroups map[subgroupKey]gitlabapi.GroupSummary
	searchResults     map[subgroupKey][]gitlabapi.GroupSummary
	nextGroupID       int64
	listCallCount     int
	createCallCount   int
	createdPaths      []string
	failCreationOf    string
	creationFailure   error
	emptyCreationOf   string
}

func newFakeGroupAPI() *fakeGroupAPI {
	return &fakeGroupAPI{
		existingSubgroups: map[subgroupKey]gitlabapi.GroupSummary{},
		searchResults:     map[subgroupKey][]gitlabapi.GroupSummary{},
		nextGroupID:       testFirstCreatedGroupIDConstant,
	}
}

func (api *fakeGroupAPI) addExistingSubgroup(parentID int64, path string, groupID int64) {
	key := subgroupKey{parentID: parentID, path: path}
	summary := gitlabapi.GroupSummary{ID: groupID, Name: path, Path: path}
	api.existingSubgroups[key] = summary
	api.searchResults[key] = append(api.searchResults[key], summary)
}

func (api *fakeGroupAPI) addSearchNoise(parentID int64, searchTerm string, noisePath string, groupID int64) {
	key := subgroupKey{parentID: parentID, path: searchTerm}
	api.searchResults[key] = append(api.searchResults[key], gitlabapi.GroupSummary{ID: groupID, Name: noisePath, Path: noisePath})
}

func (api *fakeGroupAPI) ListSubgroups(_ context.Context, parentGroupID int64, searchTerm string) ([]gitlabapi.GroupSummary, error) {
	api.listCallCount++
	key := subgroupKey{parentID: parentGroupID, path: searchTerm}
	return append([]gitlabapi.GroupSummary(nil), api.searchResults[key]...), nil
}

func (api *fakeGroupAPI) CreateGroup(_ context.Context, name string, path string, parentGroupID int64) (gitlabapi.GroupSummary, error) {
	api.createCallCount++
	api.createdPaths = append(api.createdPaths, path)

	if path == api.failCreationOf {
		return gitlabapi.GroupSummary{}, api.creationFailure
	}
	if path == api.emptyCreationOf {
		return gitlabapi.GroupSummary{}, nil
	}

	createdGroup := gitlabapi.GroupSummary{ID: api.nextGroupID, Name: name, Path: path}
	api.nextGroupID++
	api.addExistingSubgroup(parentGroupID, path, createdGroup.ID)
	return createdGroup, nil
}

func TestResolverRequiresGroupAPI(testInstance *testing.T) {
	resolver, creationError := namespace.NewResolver(zap.NewNop(), nil)
	require.Nil(testInstance, resolver)
	require.ErrorIs(testInstance, creationError, namespace.ErrGroupAPIMissing)
}

func TestResolveSentinelPathsReturnRootWithoutCalls(testInstance *testing.T) {
	testCases := []struct {
		name         string
		relativePath string
	}{
		{name: testEmptyPathCaseNameConstant, relativePath: ""},
		{name: testSentinelSlashCaseNameConstant, relativePath: "/"},
		{name: testWhitespacePathCaseNameConstant, relativePath: "  "},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			groupAPI := newFakeGroupAPI()
			resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
			require.NoError(testInstance, creationError)

			resolvedGroupID, resolveError := resolver.Resolve(context.Background(), testCase.relativePath, testRootGroupIDConstant)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testRootGroupIDConstant, resolvedGroupID)
			require.Zero(testInstance, groupAPI.listCallCount)
			require.Zero(testInstance, groupAPI.createCallCount)
		})
	}
}

func TestResolveCreatesMissingSegmentsInOrder(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	resolvedGroupID, resolveError := resolver.Resolve(context.Background(), testTwoSegmentPathConstant, testRootGroupIDConstant)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, testSecondCreatedGroupIDConstant, resolvedGroupID)
	require.Equal(testInstance, []string{"team", "backend"}, groupAPI.createdPaths)
	require.Equal(testInstance, testListCallCountTwoSegmentsConstant, groupAPI.listCallCount)
}

func TestResolveReusesExistingSubgroupChain(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	groupAPI.addExistingSubgroup(testRootGroupIDConstant, testSingleSegmentPathConstant, testExistingSubgroupIDConstant)

	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	resolvedGroupID, resolveError := resolver.Resolve(context.Background(), testSingleSegmentPathConstant, testRootGroupIDConstant)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, testExistingSubgroupIDConstant, resolvedGroupID)
	require.Equal(testInstance, 1, groupAPI.listCallCount)
	require.Zero(testInstance, groupAPI.createCallCount)
}

func TestResolveIgnoresSubstringSearchMatches(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	// Fuzzy search for "team" also reports "team-tools"; the resolver must not reuse it.
	groupAPI.addSearchNoise(testRootGroupIDConstant, testSingleSegmentPathConstant, testSubstringSiblingPathConstant, testExistingSubgroupIDConstant)

	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	resolvedGroupID, resolveError := resolver.Resolve(context.Background(), testSingleSegmentPathConstant, testRootGroupIDConstant)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, testFirstCreatedGroupIDConstant, resolvedGroupID)
	require.Equal(testInstance, []string{testSingleSegmentPathConstant}, groupAPI.createdPaths)
}

func TestResolveCachesLeafIdentifiers(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	firstResolvedID, firstError := resolver.Resolve(context.Background(), testTwoSegmentPathConstant, testRootGroupIDConstant)
	require.NoError(testInstance, firstError)

	listCallsAfterFirstResolve := groupAPI.listCallCount
	createCallsAfterFirstResolve := groupAPI.createCallCount

	secondResolvedID, secondError := resolver.Resolve(context.Background(), testTwoSegmentPathConstant, testRootGroupIDConstant)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, firstResolvedID, secondResolvedID)
	require.Equal(testInstance, listCallsAfterFirstResolve, groupAPI.listCallCount)
	require.Equal(testInstance, createCallsAfterFirstResolve, groupAPI.createCallCount)
}

func TestResolveNormalizesStraySeparatorsToSameCacheEntry(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	firstResolvedID, firstError := resolver.Resolve(context.Background(), testTwoSegmentPathConstant, testRootGroupIDConstant)
	require.NoError(testInstance, firstError)

	listCallsAfterFirstResolve := groupAPI.listCallCount

	secondResolvedID, secondError := resolver.Resolve(context.Background(), "/team/backend/", testRootGroupIDConstant)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, firstResolvedID, secondResolvedID)
	require.Equal(testInstance, listCallsAfterFirstResolve, groupAPI.listCallCount)
}

func TestResolveSurfacesCreationErrorWithPathAndMessage(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	groupAPI.failCreationOf = "backend"
	groupAPI.creationFailure = gitlabapi.APIError{
		Operation:     gitlabapi.OperationName("CreateGroup"),
		StatusCode:    400,
		RemoteMessage: testRemoteFailureMessageConstant,
	}

	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	resolvedGroupID, resolveError := resolver.Resolve(context.Background(), testTwoSegmentPathConstant, testRootGroupIDConstant)
	require.Zero(testInstance, resolvedGroupID)

	var namespaceCreationError namespace.CreationError
	require.ErrorAs(testInstance, resolveError, &namespaceCreationError)
	require.Equal(testInstance, testTwoSegmentPathConstant, namespaceCreationError.NamespacePath)
	require.Equal(testInstance, "backend", namespaceCreationError.Segment)
	require.Equal(testInstance, testRemoteFailureMessageConstant, namespaceCreationError.RemoteMessage)

	// Failed resolutions must not populate the cache: a retry walks the tree again.
	listCallsAfterFailure := groupAPI.listCallCount
	_, retryError := resolver.Resolve(context.Background(), testTwoSegmentPathConstant, testRootGroupIDConstant)
	require.Error(testInstance, retryError)
	require.Greater(testInstance, groupAPI.listCallCount, listCallsAfterFailure)
}

func TestResolveTreatsIdentifierlessCreationAsFailure(testInstance *testing.T) {
	groupAPI := newFakeGroupAPI()
	groupAPI.emptyCreationOf = testSingleSegmentPathConstant

	resolver, creationError := namespace.NewResolver(zap.NewNop(), groupAPI)
	require.NoError(testInstance, creationError)

	_, resolveError := resolver.Resolve(context.Background(), testSingleSegmentPathConstant, testRootGroupIDConstant)

	var namespaceCreationError namespace.CreationError
	require.ErrorAs(testInstance, resolveError, &namespaceCreationError)
	require.Equal(testInstance, testSingleSegmentPathConstant, namespaceCreationError.NamespacePath)
	require.Empty(testInstance, namespaceCreationError.RemoteMessage)
}
