// Package domain contains the core business entities, value objects, and
// domain logic of the application: tasks and their sharing grants, per-user
// notification policies, notification records, and achievement progress.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
