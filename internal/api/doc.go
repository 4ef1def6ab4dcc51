// Package api exposes tasks, notifications, notification settings and
// achievements over HTTP. Handlers decode and validate requests, call the
// services and stores, and map their errors to status codes.
package api
