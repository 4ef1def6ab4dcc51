// Package achievement maintains users' progress towards achievements.
//
// Each achievement key maps to a Rule, a pure function from a task
// lifecycle transition to a progress delta. The Engine applies the rules
// for the acting user whenever a task lifecycle event is published, persists
// the changed progress rows in one transaction, and notifies the user of
// every achievement unlocked by the change once that transaction commits.
// Achievements whose key has no rule are inert.
package achievement
