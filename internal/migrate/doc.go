// Package migrate implements the instance-to-instance migration workflow that
// recreates source projects on the destination GitLab, materializes their
// namespaces, and mirrors repository contents including LFS objects.
package migrate
