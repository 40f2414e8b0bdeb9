// Package orchestrator drives loaded module units through the lifecycle
// phases against a shared module context. All units finish one phase before
// the next phase starts, and a failing unit aborts the run.
package orchestrator
