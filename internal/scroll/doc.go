// Package scroll implements the debounced scroll pipeline: a cancellable
// single-slot timer, the per-burst settlement handle, and the glue that runs
// offset resolution once a burst of scroll events goes quiet.
package scroll
