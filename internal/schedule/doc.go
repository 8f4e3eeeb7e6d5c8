// Package schedule coordinates detection work between a task producer and a
// result consumer.
//
// Tasks arrive with an integer priority and are processed strictly one at a
// time, highest priority first, ties broken by arrival order. Page-fragment
// tasks outrank whole-image tasks so multi-page documents keep flowing while
// loose images wait. Processing one task at a time caps peak memory from
// large page buffers; the concurrency lives inside the detection engine,
// which fans its strategies out per task.
//
// The scheduler itself moves through three states: Open (accepting tasks),
// Draining (producer signaled done, queue non-empty), and Closed (queue
// empty with the producer-done flag latched). Both conditions are evaluated
// together after each task, so the single completion event fires exactly
// once and never before the queue has drained.
//
// A failing task (undecodable bytes, a nil buffer, even a panic inside the
// engine) becomes an error-status result and the loop moves on. Nothing a
// task does is fatal to the scheduler.
package schedule
