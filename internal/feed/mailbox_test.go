package feed_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
)

var order = []string{"motor1", "motor2", "motor3"}

func snapshot(positions ...float64) feed.Snapshot {
	return feed.Snapshot{Names: order, Positions: positions}
}

var _ = Describe("Mailbox", func() {
	var box *feed.Mailbox

	BeforeEach(func() {
		box = feed.NewMailbox(nil)
	})

	AfterEach(func() {
		box.Close()
	})

	It("has nothing to poll before the first publish", func() {
		_, ok := box.TryNext()
		Expect(ok).To(BeFalse())
	})

	It("hands out each snapshot once", func() {
		box.Publish(snapshot(1, 2, 3))

		s, ok := box.TryNext()
		Expect(ok).To(BeTrue())
		Expect(s.Positions).To(Equal([]float64{1, 2, 3}))
		Expect(s.Seq).To(Equal(uint64(1)))
		Expect(s.Stamp.IsZero()).To(BeFalse())

		_, ok = box.TryNext()
		Expect(ok).To(BeFalse())

		latest, ok := box.Latest()
		Expect(ok).To(BeTrue())
		Expect(latest.Seq).To(Equal(uint64(1)))
	})

	It("keeps only the newest snapshot and counts drops", func() {
		box.Publish(snapshot(1, 1, 1))
		box.Publish(snapshot(2, 2, 2))
		box.Publish(snapshot(3, 3, 3))

		s, ok := box.TryNext()
		Expect(ok).To(BeTrue())
		Expect(s.Positions).To(Equal([]float64{3, 3, 3}))

		stats := box.Stats()
		Expect(stats.Published).To(Equal(uint64(3)))
		Expect(stats.Dropped).To(Equal(uint64(2)))
		Expect(stats.Consumed).To(Equal(uint64(1)))
	})

	It("blocks in Next until a publish arrives", func() {
		got := make(chan feed.Snapshot, 1)
		go func() {
			defer GinkgoRecover()
			s, err := box.Next(context.Background())
			Expect(err).NotTo(HaveOccurred())
			got <- s
		}()

		Consistently(got, 50*time.Millisecond).ShouldNot(Receive())
		box.Publish(snapshot(4, 5, 6))
		Eventually(got).Should(Receive(HaveField("Positions", []float64{4, 5, 6})))
	})

	It("returns the context error when the wait is cancelled", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := box.Next(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	It("wakes readers on close", func() {
		errs := make(chan error, 1)
		go func() {
			_, err := box.Next(context.Background())
			errs <- err
		}()

		box.Close()
		Eventually(errs).Should(Receive(MatchError(feed.ErrClosed)))

		box.Publish(snapshot(1, 2, 3))
		_, ok := box.TryNext()
		Expect(ok).To(BeFalse())
	})

	Context("with a joint order", func() {
		BeforeEach(func() {
			box = feed.NewMailbox(order)
		})

		It("reorders permuted snapshots", func() {
			box.Publish(feed.Snapshot{
				Names:      []string{"motor3", "motor1", "motor2"},
				Positions:  []float64{3, 1, 2},
				Velocities: []float64{30, 10, 20},
			})

			s, ok := box.TryNext()
			Expect(ok).To(BeTrue())
			Expect(s.Names).To(Equal(order))
			Expect(s.Positions).To(Equal([]float64{1, 2, 3}))
			Expect(s.Velocities).To(Equal([]float64{10, 20, 30}))
		})

		It("passes foreign snapshots through untouched", func() {
			box.Publish(feed.Snapshot{Names: []string{"a", "b"}, Positions: []float64{1, 2}})

			s, ok := box.TryNext()
			Expect(ok).To(BeTrue())
			Expect(s.Names).To(Equal([]string{"a", "b"}))
			Expect(kin.ValidateJointOrder(order, s.Names)).To(MatchError(kin.ErrJointOrderMismatch))
		})
	})
})

var _ = Describe("Reorder", func() {
	It("rejects a different name set", func() {
		_, err := feed.Reorder(feed.Snapshot{
			Names:     []string{"motor1", "motor2", "elbow"},
			Positions: []float64{1, 2, 3},
		}, order)
		Expect(err).To(MatchError(kin.ErrJointOrderMismatch))
	})

	It("rejects mismatched velocity counts", func() {
		_, err := feed.Reorder(feed.Snapshot{
			Names:      order,
			Positions:  []float64{1, 2, 3},
			Velocities: []float64{1},
		}, order)
		Expect(err).To(MatchError(kin.ErrJointOrderMismatch))
	})

	It("concatenates positions and velocities", func() {
		s := feed.Snapshot{Names: order, Positions: []float64{1, 2, 3}, Velocities: []float64{4, 5, 6}}
		Expect(s.HasVelocities()).To(BeTrue())
		Expect(s.JointState()).To(Equal([]float64{1, 2, 3, 4, 5, 6}))
	})
})
