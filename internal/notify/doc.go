// Package notify implements deadline reminders and the other notification
// flows of the task system.
//
// A Scheduler scans for tasks whose due date is approaching on a fixed
// interval and hands one dispatch job per task to a worker pool, gated by a
// worker.Governor. Each job runs a Processor that evaluates every
// recipient's personal policy and creates the reminder through the
// Notifier, which persists it and pushes it to the recipient's live
// connection. FanOut and EventHandler react to events published on the
// events.Bus, and Cleaner purges closed notifications.
package notify
