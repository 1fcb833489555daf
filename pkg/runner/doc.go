/*
Package runner implements auto-play for debugging sessions.

The engine never schedules anything by itself: auto-play is a host timer that
repeatedly steps the session until something needs the user's attention. The
Runner stops on a pending choice, the end of the flow, the step limit, an
error, or a breakpoint on the node it just moved to. Cancelling the context
stops the loop between two ticks.

# Usage

	r := runner.New(engine, runner.WithInterval(300*time.Millisecond))

	res, state, err := r.Play(ctx, state)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
*/
package runner
