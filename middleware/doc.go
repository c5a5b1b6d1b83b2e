// Package middleware provides composable middleware for step execution.
//
// A [Middleware] is a function that wraps the handler for one step
// attempt. Middleware are composed into a chain using [Chain] and applied
// around every attempt the engine makes. They are applied right-to-left:
// the first middleware in the slice is the outermost wrapper.
//
//	// logging → recover → timeout → executor
//	chain := middleware.Chain(
//	    middleware.Logging(logger),
//	    middleware.Recover(logger),
//	    middleware.Timeout(logger),
//	)
//
// # Built-in Middleware
//
//   - [Logging] — logs workflow, step, attempt number, duration, and outcome
//   - [Recover] — catches executor panics and converts them to errors
//   - [Timeout] — applies the step definition's per-attempt deadline
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-step duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, a *workflow.Attempt, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
