package env_test

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/scarakin/internal/arm"
	"github.com/san-kum/scarakin/internal/command"
	"github.com/san-kum/scarakin/internal/env"
	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
	"github.com/san-kum/scarakin/internal/pipeline"
)

var (
	order = []string{"j1", "j2"}
	goalQ = []float64{0.3, 0.4}
)

func planar() *kin.Chain {
	c, err := kin.NewChain([]kin.Segment{
		{Joint: "j1", Type: kin.Revolute, Parent: "base", Child: "link1", Axis: r3.Vector{Z: 1}},
		{Joint: "j2", Type: kin.Revolute, Parent: "link1", Child: "link2", XYZ: r3.Vector{X: 1}, Axis: r3.Vector{Z: 1}},
		{Joint: "tool_joint", Type: kin.Fixed, Parent: "link2", Child: "tool", XYZ: r3.Vector{X: 1}},
	})
	Expect(err).NotTo(HaveOccurred())
	return c
}

func limitedPlanar(bound float64) *kin.Chain {
	lim := kin.Limits{Lower: -bound, Upper: bound}
	c, err := kin.NewChain([]kin.Segment{
		{Joint: "j1", Type: kin.Revolute, Parent: "base", Child: "link1", Axis: r3.Vector{Z: 1}, Limits: lim},
		{Joint: "j2", Type: kin.Revolute, Parent: "link1", Child: "link2", XYZ: r3.Vector{X: 1}, Axis: r3.Vector{Z: 1}, Limits: lim},
		{Joint: "tool_joint", Type: kin.Fixed, Parent: "link2", Child: "tool", XYZ: r3.Vector{X: 1}},
	})
	Expect(err).NotTo(HaveOccurred())
	return c
}

func estimator(c *kin.Chain, velocities bool) *pipeline.Estimator {
	pose, err := kin.EndPose(c, goalQ)
	Expect(err).NotTo(HaveOccurred())
	est, err := pipeline.New(c, pipeline.Task{
		Points:          []r3.Vector{{}},
		Targets:         []r3.Vector{pose.Translation},
		JointVelocities: velocities,
		PointVelocities: velocities,
	})
	Expect(err).NotTo(HaveOccurred())
	return est
}

// script replays fixed snapshots, then reports the feed closed.
type script struct {
	snaps []feed.Snapshot
}

func (s *script) Next(ctx context.Context) (feed.Snapshot, error) {
	if len(s.snaps) == 0 {
		return feed.Snapshot{}, feed.ErrClosed
	}
	next := s.snaps[0]
	s.snaps = s.snaps[1:]
	return next, nil
}

type recorder struct {
	sent []command.Trajectory
}

func (r *recorder) Publish(ctx context.Context, t command.Trajectory) error {
	r.sent = append(r.sent, t)
	return nil
}

var _ = Describe("Reward", func() {
	It("penalises distance outside tolerance", func() {
		r, done := env.Reward(0.2, 0.005)
		Expect(r).To(Equal(-0.2))
		Expect(done).To(BeFalse())
	})

	It("pays out and finishes within tolerance", func() {
		r, done := env.Reward(0.001, 0.005)
		Expect(r).To(BeNumerically("~", 0.999, 1e-12))
		Expect(done).To(BeTrue())
	})
})

var _ = Describe("Env with a scripted feed", func() {
	var (
		ctx  context.Context
		sink *recorder
		logs *observer.ObservedLogs
		log  *zap.Logger
		opts env.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		sink = &recorder{}
		var core zapcore.Core
		core, logs = observer.New(zapcore.WarnLevel)
		log = zap.New(core)
		opts = env.DefaultOptions()
	})

	It("refuses to step before reset", func() {
		e, err := env.New(estimator(planar(), false), &script{}, sink, opts, log)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.Step(ctx, []float64{0, 0})
		Expect(err).To(HaveOccurred())
	})

	It("skips ticks whose joints do not match the chain", func() {
		src := &script{snaps: []feed.Snapshot{
			{Seq: 1, Names: []string{"j2", "j1"}, Positions: []float64{0, 0}},
			{Seq: 2, Names: order, Positions: []float64{0, 0}},
		}}
		e, err := env.New(estimator(planar(), false), src, sink, opts, log)
		Expect(err).NotTo(HaveOccurred())

		obs, err := e.Reset(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.Seq).To(Equal(uint64(2)))
		Expect(e.Ticks()).To(Equal(0))

		Expect(logs.FilterMessage("skipping tick").Len()).To(Equal(1))
		Expect(sink.sent).To(HaveLen(1))
		Expect(sink.sent[0].JointNames).To(Equal(order))
		Expect(sink.sent[0].Final().TimeFromStart.Sec).To(Equal(int32(1)))

		final := sink.sent[0].Final()
		Expect(final.Velocities).To(Equal([]float64{opts.GoalVelocity, opts.GoalVelocity}))
		Expect(final.Efforts).To(HaveLen(2))
		for _, f := range final.Efforts {
			Expect(math.IsNaN(f)).To(BeTrue())
		}
	})

	It("gives up after too many unusable snapshots", func() {
		bad := feed.Snapshot{Names: []string{"x", "y"}, Positions: []float64{0, 0}}
		src := &script{snaps: []feed.Snapshot{bad, bad, bad, bad}}
		opts.MaxSkips = 2
		e, err := env.New(estimator(planar(), false), src, sink, opts, log)
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Reset(ctx)
		Expect(err).To(MatchError(env.ErrTooManySkips))
	})

	It("propagates feed errors", func() {
		e, err := env.New(estimator(planar(), false), &script{}, sink, opts, log)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.Reset(ctx)
		Expect(err).To(MatchError(feed.ErrClosed))
	})

	It("integrates the goal toward the action", func() {
		src := &script{snaps: []feed.Snapshot{
			{Names: order, Positions: []float64{0, 0}},
			{Names: order, Positions: []float64{0.001, 0}},
		}}
		e, err := env.New(estimator(planar(), false), src, sink, opts, log)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.Reset(ctx)
		Expect(err).NotTo(HaveOccurred())

		res, err := e.Step(ctx, []float64{1, -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Goal[0]).To(BeNumerically("~", 0.005, 1e-12))
		Expect(res.Goal[1]).To(BeNumerically("~", -0.005, 1e-12))
		Expect(res.Reward).To(Equal(-res.Distance))
		Expect(sink.sent).To(HaveLen(2))
	})

	It("settles on reset positions clamped to the joint limits", func() {
		src := &script{snaps: []feed.Snapshot{
			{Seq: 1, Names: order, Positions: []float64{0.5, -0.5}},
		}}
		opts.ResetPositions = []float64{2, -2}
		e, err := env.New(estimator(limitedPlanar(0.5), false), src, sink, opts, log)
		Expect(err).NotTo(HaveOccurred())

		obs, err := e.Reset(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.Seq).To(Equal(uint64(1)))
		Expect(sink.sent[0].Final().Positions).To(Equal([]float64{0.5, -0.5}))
		Expect(logs.Len()).To(Equal(0))
	})

	It("rejects mismatched options", func() {
		opts.ResetPositions = []float64{0}
		_, err := env.New(estimator(planar(), false), &script{}, sink, opts, log)
		Expect(err).To(MatchError(kin.ErrDimensionMismatch))
	})
})

var _ = Describe("Env driving the simulated arm", func() {
	var (
		ctx context.Context
		sim *arm.Sim
		e   *env.Env
	)

	newEnv := func(reset []float64) {
		var err error
		sim, err = arm.New(arm.DefaultConfig(order), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		opts := env.DefaultOptions()
		opts.ResetPositions = reset
		e, err = env.New(estimator(planar(), true), arm.Lockstep{Sim: sim}, sim, opts, nil)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("derives the observation size from the layout", func() {
		newEnv(nil)
		Expect(e.ObsDim()).To(Equal(10))
		Expect(e.ActionSpace().Dim()).To(Equal(2))
	})

	It("starts episodes at the reset positions", func() {
		newEnv([]float64{0.1, -0.2})
		obs, err := e.Reset(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.Positions[0]).To(BeNumerically("~", 0.1, 1e-6))
		Expect(obs.Positions[1]).To(BeNumerically("~", -0.2, 1e-6))
		Expect(obs.State).To(HaveLen(e.ObsDim()))
	})

	It("moves the points toward their targets", func() {
		newEnv(nil)
		first, err := e.Reset(ctx)
		Expect(err).NotTo(HaveOccurred())

		ep, err := env.Run(ctx, e, env.Constant{Target: goalQ}, 100, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Steps).To(Equal(100))
		Expect(ep.States).To(HaveLen(100))
		Expect(ep.Distances[99]).To(BeNumerically("<", first.Distance()))
		Expect(ep.Metrics).To(HaveKey("mean_distance"))
	})

	It("finishes as soon as the points are within tolerance", func() {
		newEnv(goalQ)
		var seen int
		ep, err := env.Run(ctx, e, env.Hold{}, 50, func(env.StepResult) { seen++ })
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Done).To(BeTrue())
		Expect(ep.Steps).To(Equal(1))
		Expect(seen).To(Equal(1))
		Expect(ep.Rewards[0]).To(BeNumerically(">", 0.99))
		Expect(ep.Metrics["success_rate"]).To(Equal(1.0))
	})

	It("keeps random actions inside the action space", func() {
		newEnv(nil)
		_, err := e.Reset(ctx)
		Expect(err).NotTo(HaveOccurred())
		p := env.NewRandom(e.ActionSpace(), 3)
		for i := 0; i < 20; i++ {
			Expect(e.ActionSpace().Contains(p.Act(e.Last()))).To(BeTrue())
		}
	})

	It("reaches the target with the damped least-squares policy", func() {
		newEnv(nil)
		ep, err := env.Run(ctx, e, env.Reach{Gain: 1, Damping: 0.05}, 400, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Metrics["mean_distance"]).To(BeNumerically("<", ep.Distances[0]))
	})
})
