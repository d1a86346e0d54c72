// Package task contains the background jobs that run alongside the request
// handlers: the overdue notifier sweep and the scheduler that drives it on a
// fixed interval. Jobs are explicitly constructed and owned by the process
// lifecycle in cmd/server; nothing in this package registers itself globally.
package task
