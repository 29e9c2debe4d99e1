/*
Package tracing correlates log lines belonging to one request.

Every HTTP request and every tool invocation gets a span. Spans share a
trace id, taken from the X-Trace-ID request header when the caller sends
one, and are logged by a background collector once finished.

# Usage

	tracer := tracing.New(logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "terminal.write")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Finished spans are buffered (1000) and dropped with a warning when the
collector falls behind.
*/
package tracing
