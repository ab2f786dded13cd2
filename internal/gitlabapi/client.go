package gitlabapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	resty "resty.dev/v3"
)

const (
	apiPathPrefixConstant                 = "/api/v4"
	subgroupsEndpointTemplateConstant     = "/groups/%d/subgroups"
	groupsEndpointConstant                = "/groups"
	projectsEndpointConstant              = "/projects"
	projectByPathEndpointTemplateConstant = "/projects/%s"
	groupProjectsEndpointTemplateConstant = "/groups/%d/projects"
	privateTokenHeaderNameConstant        = "PRIVATE-TOKEN"
	searchQueryParameterNameConstant      = "search"
	pageQueryParameterNameConstant        = "page"
	perPageQueryParameterNameConstant     = "per_page"
	nextPageHeaderNameConstant            = "x-next-page"
	includeSubgroupsParameterNameConstant = "include_subgroups"
	includeSubgroupsParameterValueConst   = "true"
	defaultPageSizeConstant               = 100
	firstPageNumberConstant               = 1
	baseURLMissingMessageConstant         = "gitlab base URL not provided"
	tokenMissingMessageConstant           = "gitlab private token not provided"
	groupNameFieldNameConstant            = "group_name"
	groupPathFieldNameConstant            = "group_path"
	projectPathFieldNameConstant          = "project_path_with_namespace"
	requiredValueMessageConstant          = "value required"
	invalidInputErrorTemplateConstant     = "%s: %s"
	operationErrorTemplateConstant        = "%s operation failed (status %d): %s"
	transportErrorTemplateConstant        = "%s request failed: %s"
	decodeErrorTemplateConstant           = "%s response decoding failed: %s"
	missingRemoteMessageConstant          = "remote response carried no message"
	alreadyTakenMessageFragmentConstant   = "already been taken"
	alreadyExistsMessageFragmentConstant  = "already exists"
)

// OperationName identifies a GitLab REST operation performed by the client.
type OperationName string

// Operation names used in error reporting.
const (
	listSubgroupsOperationNameConstant     OperationName = "ListSubgroups"
	createGroupOperationNameConstant       OperationName = "CreateGroup"
	lookupProjectOperationNameConstant     OperationName = "LookupProject"
	createProjectOperationNameConstant     OperationName = "CreateProject"
	listGroupProjectsOperationNameConstant OperationName = "ListGroupProjects"
)

// GroupSummary describes a group as reported by the subgroup and creation endpoints.
type GroupSummary struct {
	ID       int64
	Name     string
	Path     string
	FullPath string
}

// ProjectDetails describes a project on either GitLab instance.
type ProjectDetails struct {
	ID                int64
	Name              string
	Path              string
	PathWithNamespace string
	Description       string
	HTTPURLToRepo     string
	Visibility        string
}

// CreateProjectRequest carries the fields submitted when creating a project.
type CreateProjectRequest struct {
	Name        string
	Path        string
	NamespaceID int64
	Description string
	Visibility  string
}

// Sentinel construction errors.
var (
	ErrBaseURLMissing = errors.New(baseURLMissingMessageConstant)
	ErrTokenMissing   = errors.New(tokenMissingMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// APIError reports a GitLab response outside the success range.
type APIError struct {
	Operation     OperationName
	StatusCode    int
	RemoteMessage string
}

// Error describes the remote failure.
func (apiError APIError) Error() string {
	remoteMessage := apiError.RemoteMessage
	if len(remoteMessage) == 0 {
		remoteMessage = missingRemoteMessageConstant
	}
	return fmt.Sprintf(operationErrorTemplateConstant, apiError.Operation, apiError.StatusCode, remoteMessage)
}

// IsAlreadyExists reports whether the remote message describes a name or path collision.
func (apiError APIError) IsAlreadyExists() bool {
	normalizedMessage := strings.ToLower(apiError.RemoteMessage)
	return strings.Contains(normalizedMessage, alreadyTakenMessageFragmentConstant) ||
		strings.Contains(normalizedMessage, alreadyExistsMessageFragmentConstant)
}

// TransportError reports request construction or connectivity failures.
type TransportError struct {
	Operation OperationName
	Cause     error
}

// Error describes the transport failure.
func (transportError TransportError) Error() string {
	return fmt.Sprintf(transportErrorTemplateConstant, transportError.Operation, transportError.Cause)
}

// Unwrap exposes the underlying cause.
func (transportError TransportError) Unwrap() error {
	return transportError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(decodeErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// ClientOptions configures a Client for one GitLab instance.
type ClientOptions struct {
	BaseURL      string
	PrivateToken string
}

// Client performs GitLab REST operations against a single instance.
type Client struct {
	httpClient *resty.Client
}

// NewClient constructs a Client bound to the instance described by options.
func NewClient(options ClientOptions) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLMissing
	}

	trimmedToken := strings.TrimSpace(options.PrivateToken)
	if len(trimmedToken) == 0 {
		return nil, ErrTokenMissing
	}

	httpClient := resty.New().
		SetBaseURL(trimmedBaseURL + apiPathPrefixConstant).
		SetHeader(privateTokenHeaderNameConstant, trimmedToken)

	return &Client{httpClient: httpClient}, nil
}

type groupResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	FullPath string          `json:"full_path"`
	Message  json.RawMessage `json:"message"`
}

type projectResponse struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Path              string          `json:"path"`
	PathWithNamespace string          `json:"path_with_namespace"`
	Description       string          `json:"description"`
	HTTPURLToRepo     string          `json:"http_url_to_repo"`
	Visibility        string          `json:"visibility"`
	Message           json.RawMessage `json:"message"`
}

type remoteErrorResponse struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// ListSubgroups enumerates subgroups of the parent whose names match the search term.
//
// The remote search endpoint matches substrings, so callers needing exact path
// matches must filter the returned summaries themselves.
func (client *Client) ListSubgroups(executionContext context.Context, parentGroupID int64, searchTerm string) ([]GroupSummary, error) {
	var decodedGroups []groupResponse

	response, requestError := client.httpClient.R().
		SetContext(executionContext).
		SetQueryParam(searchQueryParameterNameConstant, searchTerm).
		SetQueryParam(perPageQueryParameterNameConstant, strconv.Itoa(defaultPageSizeConstant)).
		SetResult(&decodedGroups).
		Get(fmt.Sprintf(subgroupsEndpointTemplateConstant, parentGroupID))
	if requestError != nil {
		return nil, TransportError{Operation: listSubgroupsOperationNameConstant, Cause: requestError}
	}

	if response.IsError() {
		return nil, client.buildAPIError(listSubgroupsOperationNameConstant, response)
	}

	subgroups := make([]GroupSummary, 0, len(decodedGroups))
	for _, decodedGroup := range decodedGroups {
		subgroups = append(subgroups, GroupSummary{
			ID:       decodedGroup.ID,
			Name:     decodedGroup.Name,
			Path:     decodedGroup.Path,
			FullPath: decodedGroup.FullPath,
		})
	}

	return subgroups, nil
}

// CreateGroup creates a group beneath the parent using the supplied name and path.
func (client *Client) CreateGroup(executionContext context.Context, name string, path string, parentGroupID int64) (GroupSummary, error) {
	if len(strings.TrimSpace(name)) == 0 {
		return GroupSummary{}, InvalidInputError{FieldName: groupNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(path)) == 0 {
		return GroupSummary{}, InvalidInputError{FieldName: groupPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	requestBody := map[string]any{
		"name":      name,
		"path":      path,
		"parent_id": parentGroupID,
	}

	var decodedGroup groupResponse

	response, requestError := client.httpClient.R().
		SetContext(executionContext).
		SetBody(requestBody).
		SetResult(&decodedGroup).
		Post(groupsEndpointConstant)
	if requestError != nil {
		return GroupSummary{}, TransportError{Operation: createGroupOperationNameConstant, Cause: requestError}
	}

	if response.IsError() {
		return GroupSummary{}, client.buildAPIError(createGroupOperationNameConstant, response)
	}

	if decodedGroup.ID == 0 {
		return GroupSummary{}, APIError{
			Operation:     createGroupOperationNameConstant,
			StatusCode:    response.StatusCode(),
			RemoteMessage: flattenRemoteMessage(decodedGroup.Message),
		}
	}

	return GroupSummary{
		ID:       decodedGroup.ID,
		Name:     decodedGroup.Name,
		Path:     decodedGroup.Path,
		FullPath: decodedGroup.FullPath,
	}, nil
}

// LookupProject retrieves a project by its full path, reporting absence without error.
func (client *Client) LookupProject(executionContext context.Context, pathWithNamespace string) (ProjectDetails, bool, error) {
	trimmedPath := strings.TrimSpace(pathWithNamespace)
	if len(trimmedPath) == 0 {
		return ProjectDetails{}, false, InvalidInputError{FieldName: projectPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var decodedProject projectResponse

	response, requestError := client.httpClient.R().
		SetContext(executionContext).
		SetResult(&decodedProject).
		Get(fmt.Sprintf(projectByPathEndpointTemplateConstant, url.PathEscape(trimmedPath)))
	if requestError != nil {
		return ProjectDetails{}, false, TransportError{Operation: lookupProjectOperationNameConstant, Cause: requestError}
	}

	if response.StatusCode() == http.StatusNotFound {
		return ProjectDetails{}, false, nil
	}

	if response.IsError() {
		return ProjectDetails{}, false, client.buildAPIError(lookupProjectOperationNameConstant, response)
	}

	return buildProjectDetails(decodedProject), true, nil
}

// CreateProject creates a project inside the requested namespace.
func (client *Client) CreateProject(executionContext context.Context, request CreateProjectRequest) (ProjectDetails, error) {
	if len(strings.TrimSpace(request.Path)) == 0 {
		return ProjectDetails{}, InvalidInputError{FieldName: projectPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	requestBody := map[string]any{
		"name": request.Name,
		"path": request.Path,
	}
	if request.NamespaceID > 0 {
		requestBody["namespace_id"] = request.NamespaceID
	}
	if len(request.Description) > 0 {
		requestBody["description"] = request.Description
	}
	if len(request.Visibility) > 0 {
		requestBody["visibility"] = request.Visibility
	}

	var decodedProject projectResponse

	response, requestError := client.httpClient.R().
		SetContext(executionContext).
		SetBody(requestBody).
		SetResult(&decodedProject).
		Post(projectsEndpointConstant)
	if requestError != nil {
		return ProjectDetails{}, TransportError{Operation: createProjectOperationNameConstant, Cause: requestError}
	}

	if response.IsError() {
		return ProjectDetails{}, client.buildAPIError(createProjectOperationNameConstant, response)
	}

	if decodedProject.ID == 0 {
		return ProjectDetails{}, APIError{
			Operation:     createProjectOperationNameConstant,
			StatusCode:    response.StatusCode(),
			RemoteMessage: flattenRemoteMessage(decodedProject.Message),
		}
	}

	return buildProjectDetails(decodedProject), nil
}

// ListGroupProjects enumerates every project inside the group and its
// subgroups, following pagination.
func (client *Client) ListGroupProjects(executionContext context.Context, groupID int64) ([]ProjectDetails, error) {
	var collectedProjects []ProjectDetails

	pageNumber := firstPageNumberConstant
	for {
		var decodedProjects []projectResponse

		response, requestError := client.httpClient.R().
			SetContext(executionContext).
			SetQueryParam(pageQueryParameterNameConstant, strconv.Itoa(pageNumber)).
			SetQueryParam(perPageQueryParameterNameConstant, strconv.Itoa(defaultPageSizeConstant)).
			SetQueryParam(includeSubgroupsParameterNameConstant, includeSubgroupsParameterValueConst).
			SetResult(&decodedProjects).
			Get(fmt.Sprintf(groupProjectsEndpointTemplateConstant, groupID))
		if requestError != nil {
			return nil, TransportError{Operation: listGroupProjectsOperationNameConstant, Cause: requestError}
		}

		if response.IsError() {
			return nil, client.buildAPIError(listGroupProjectsOperationNameConstant, response)
		}

		for _, decodedProject := range decodedProjects {
			collectedProjects = append(collectedProjects, buildProjectDetails(decodedProject))
		}

		nextPageValue := strings.TrimSpace(response.Header().Get(nextPageHeaderNameConstant))
		if len(nextPageValue) == 0 {
			break
		}
		parsedNextPage, parseError := strconv.Atoi(nextPageValue)
		if parseError != nil || parsedNextPage <= pageNumber {
			break
		}
		pageNumber = parsedNextPage
	}

	return collectedProjects, nil
}

func (client *Client) buildAPIError(operation OperationName, response *resty.Response) APIError {
	remoteMessage := ""

	var decodedError remoteErrorResponse
	if unmarshalError := json.Unmarshal(response.Bytes(), &decodedError); unmarshalError == nil {
		remoteMessage = flattenRemoteMessage(decodedError.Message)
		if len(remoteMessage) == 0 {
			remoteMessage = decodedError.Error
		}
	}

	if len(remoteMessage) == 0 {
		remoteMessage = strings.TrimSpace(string(response.Bytes()))
	}

	return APIError{
		Operation:     operation,
		StatusCode:    response.StatusCode(),
		RemoteMessage: remoteMessage,
	}
}

func buildProjectDetails(decodedProject projectResponse) ProjectDetails {
	return ProjectDetails{
		ID:                decodedProject.ID,
		Name:              decodedProject.Name,
		Path:              decodedProject.Path,
		PathWithNamespace: decodedProject.PathWithNamespace,
		Description:       decodedProject.Description,
		HTTPURLToRepo:     decodedProject.HTTPURLToRepo,
		Visibility:        decodedProject.Visibility,
	}
}

// flattenRemoteMessage renders the GitLab message field, which may be a string,
// a list, or a map of field errors, as a single string.
func flattenRemoteMessage(rawMessage json.RawMessage) string {
	if len(rawMessage) == 0 {
		return ""
	}

	var stringMessage string
	if unmarshalError := json.Unmarshal(rawMessage, &stringMessage); unmarshalError == nil {
		return stringMessage
	}

	var listMessage []string
	if unmarshalError := json.Unmarshal(rawMessage, &listMessage); unmarshalError == nil {
		return strings.Join(listMessage, "; ")
	}

	var mapMessage map[string][]string
	if unmarshalError := json.Unmarshal(rawMessage, &mapMessage); unmarshalError == nil {
		flattened := make([]string, 0, len(mapMessage))
		for fieldName, fieldMessages := range mapMessage {
			flattened = append(flattened, fieldName+" "+strings.Join(fieldMessages, ", "))
		}
		sort.Strings(flattened)
		return strings.Join(flattened, "; ")
	}

	return strings.TrimSpace(string(rawMessage))
}
