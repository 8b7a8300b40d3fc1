// Package audit records the control-plane history of the hierarchy engine:
// every attach, detach, node creation and node destruction, with its
// outcome. Records answer "who changed what policy where, and did it take"
// questions after the fact; the hot filtering path is never audited.
//
// Two Recorder implementations ship: a SQLite-backed recorder for durable
// single-instance deployments and an in-memory recorder for tests and
// ephemeral runs. Retention is handled by a Pruner (age and record-count
// limits) driven by a cron Scheduler.
package audit
