package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/fanout/pkg/async"
)

func waitForCancel(ctx context.Context) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

var _ = Describe("Run", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with a concurrency ceiling", func() {
		It("never runs more items than the ceiling and still finishes all of them", func() {
			var current, peak atomic.Int32
			items := make([]async.WorkItem[int], 20)
			for i := range items {
				items[i] = async.WorkItem[int]{
					Name: fmt.Sprintf("node-%02d", i),
					Run: func(context.Context) (int, error) {
						c := current.Add(1)
						defer current.Add(-1)
						for {
							old := peak.Load()
							if c <= old || peak.CompareAndSwap(old, c) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						return i, nil
					},
				}
			}

			out, err := async.Run(ctx, items, async.WithConcurrency(4))
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Len()).To(Equal(20))
			Expect(out.Complete()).To(BeTrue())
			Expect(peak.Load()).To(BeNumerically("<=", 4))
		})
	})

	Context("in isolated mode", func() {
		It("records every failure without stopping the rest", func() {
			items := []async.WorkItem[int]{
				{Name: "a", Run: func(context.Context) (int, error) { return 1, nil }},
				{Name: "b", Run: func(context.Context) (int, error) { return 0, errors.New("b broke") }},
				{Name: "c", Run: func(context.Context) (int, error) { return 0, errors.New("c broke") }},
			}

			out, err := async.Run(ctx, items)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Failed()).To(ConsistOf("b", "c"))
			Expect(out.Succeeded()).To(ConsistOf("a"))
			Expect(out.Err()).To(MatchError(ContainSubstring("b broke")))
			Expect(out.Err()).To(MatchError(ContainSubstring("c broke")))
		})
	})

	Context("in fail-fast mode", func() {
		It("aborts on the first failure and marks the rest not completed", func() {
			items := []async.WorkItem[int]{
				{Name: "a", Run: waitForCancel},
				{Name: "b", Run: func(context.Context) (int, error) { return 0, errors.New("b broke") }},
				{Name: "c", Run: waitForCancel},
			}

			out, err := async.Run(ctx, items, async.WithFailFast())
			var abort *async.AbortError
			Expect(errors.As(err, &abort)).To(BeTrue())
			Expect(abort.Item).To(Equal("b"))

			Expect(out.Len()).To(Equal(3))
			Expect(out.Results["b"].Status).To(Equal(async.StatusFailed))
			Expect(out.Incomplete).To(Equal([]string{"a", "c"}))
		})
	})

	Context("when the caller cancels", func() {
		It("keeps finished results and lists the rest as incomplete", func() {
			cctx, cancel := context.WithCancel(ctx)
			DeferCleanup(cancel)

			items := []async.WorkItem[int]{
				{Name: "done", Run: func(context.Context) (int, error) { return 42, nil }},
				{Name: "hung", Run: waitForCancel},
			}
			time.AfterFunc(30*time.Millisecond, cancel)

			out, err := async.Run(cctx, items)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Results["done"].Value).To(Equal(42))
			Expect(out.Incomplete).To(ConsistOf("hung"))
			Expect(out.Interrupted).To(MatchError(context.Canceled))
		})
	})

	Context("when the timeout elapses", func() {
		It("returns within the timeout and reports ErrTimeout", func() {
			items := []async.WorkItem[int]{{Name: "hung", Run: waitForCancel}}

			start := time.Now()
			out, err := async.Run(ctx, items, async.WithTimeout(25*time.Millisecond))
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(errors.Is(out.Interrupted, async.ErrTimeout)).To(BeTrue())
		})
	})

	DescribeTable("rejects invalid configuration before starting work",
		func(opt async.Option) {
			var started atomic.Bool
			items := []async.WorkItem[int]{{Name: "a", Run: func(context.Context) (int, error) {
				started.Store(true)
				return 0, nil
			}}}

			out, err := async.Run(ctx, items, opt)
			Expect(out).To(BeNil())
			Expect(err).To(MatchError(async.ErrInvalidConfig))
			Expect(started.Load()).To(BeFalse())
		},
		Entry("zero ceiling", async.WithConcurrency(0)),
		Entry("negative ceiling", async.WithConcurrency(-1)),
		Entry("zero timeout", async.WithTimeout(0)),
		Entry("negative grace period", async.WithGracePeriod(-time.Millisecond)),
	)
})
