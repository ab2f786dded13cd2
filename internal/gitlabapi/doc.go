// Package gitlabapi implements the GitLab REST operations glim depends on.
//
// A Client is bound to a single instance (base URL plus private token) and
// exposes the group and project endpoints used by namespace resolution and
// project migration. Remote failures surface as typed APIError values carrying
// the remote message for journaling.
package gitlabapi
