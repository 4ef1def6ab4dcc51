// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the notification and achievement core, which depends only on the
// contracts declared here: a task query collaborator, a user preference
// collaborator, a notification sink and achievement progress storage.
package store
