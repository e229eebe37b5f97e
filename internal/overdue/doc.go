// Package overdue announces open tasks whose due time has passed.
//
// A task's deadline is its due time on the current calendar day. Due times
// that span midnight are not supported: after midnight the deadline moves to
// the new day, so a task checked at 00:30 with a 23:59:59 due time is not
// overdue. Each task is announced at most once; the flag is persisted with
// the task.
package overdue
