// Package async provides a bounded fan-out/fan-in executor for independent
// units of work.
//
// [Run] starts one goroutine per [WorkItem] (optionally capped by a
// concurrency ceiling), records exactly one [Result] per item, and returns
// once every item has finished or the batch was cut short by cancellation,
// a timeout, or a fail-fast abort. The returned [Outcome] always accounts
// for every submitted item: succeeded, failed, or not completed.
//
// Failures are isolated by default. [WithFailFast] turns the first failure
// into an abort of the whole batch, and an error marked with [Fatal] aborts
// the batch regardless of mode.
//
// Cancellation is cooperative. Running units see their context cancelled
// and are expected to return promptly; units that ignore it keep running in
// the background, but their late results are discarded once Run returns.
//
// Example:
//
//	items := []async.WorkItem[string]{
//	    {Name: "web-0", Run: waitForPod("web-0")},
//	    {Name: "web-1", Run: waitForPod("web-1")},
//	}
//	out, err := async.Run(ctx, items, async.WithConcurrency(2), async.WithTimeout(time.Minute))
//	if err != nil {
//	    return err
//	}
//	for _, name := range out.Failed() {
//	    fmt.Println(name, out.Results[name].Err)
//	}
package async
