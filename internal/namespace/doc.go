// Package namespace ensures destination group chains exist for migrated
// projects.
//
// The Resolver walks a slash-delimited relative path one segment at a time,
// reusing groups that already exist and creating the rest, and memoizes fully
// resolved leaf identifiers for the duration of a run.
package namespace
