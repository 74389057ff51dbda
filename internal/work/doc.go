// Package work turns batch items into executor work items.
//
// Each batch.Kind has a Factory in an explicit registry. A Factory validates
// its item and returns a Runner; Build wraps every Runner in an
// async.WorkItem. External collaborators (Kubernetes, HTTP, SSH) come from an
// Env so that tests can substitute fakes.
package work
