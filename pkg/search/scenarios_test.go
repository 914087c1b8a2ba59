package search_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/plan"
	"github.com/operator-framework/satplan/pkg/scenarios"
	"github.com/operator-framework/satplan/pkg/search"
	"github.com/operator-framework/satplan/pkg/solver"
)

// shortest explores the reachable snapshots of p breadth first and
// returns the length of the shortest non-empty plan, or -1 if none has
// at most max steps. Snapshots violating an invariant are pruned.
func shortest(p *domain.Problem, max int) int {
	seen := map[string]struct{}{p.Init.String(): {}}
	frontier := []domain.State{p.Init}
	for depth := 1; depth <= max; depth++ {
		var next []domain.State
		for _, s := range frontier {
			for _, a := range p.Domain.Instances() {
				ok, err := p.Domain.Applicable(a, s)
				Expect(err).NotTo(HaveOccurred())
				if !ok {
					continue
				}
				succ, err := p.Domain.Apply(a, s)
				Expect(err).NotTo(HaveOccurred())
				valid, err := p.Domain.InvariantsHold(succ)
				Expect(err).NotTo(HaveOccurred())
				if !valid {
					continue
				}
				goal, err := p.Satisfied(succ)
				Expect(err).NotTo(HaveOccurred())
				if goal {
					return depth
				}
				if _, ok := seen[succ.String()]; ok {
					continue
				}
				seen[succ.String()] = struct{}{}
				next = append(next, succ)
			}
		}
		frontier = next
	}
	return -1
}

// bounded returns the default configuration searching up to max steps.
func bounded(max int) search.Config {
	return config(func(c *search.Config) { c.MaxHorizon = max })
}

func unchanged(*search.Config) {}

func run(p *domain.Problem, c search.Config) *search.Outcome {
	planner, err := search.New(search.WithConfig(c))
	Expect(err).NotTo(HaveOccurred())
	out, err := planner.Plan(context.Background(), p)
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("Planner", func() {
	var (
		p   *domain.Problem
		err error
	)

	Context("stone transfer", func() {
		BeforeEach(func() {
			p, err = scenarios.StoneTransfer()
			Expect(err).NotTo(HaveOccurred())
		})

		It("finds a four step plan", func() {
			out := run(p, bounded(6))
			Expect(out.Status).To(Equal(search.Found))
			Expect(out.Horizon).To(Equal(4))
			Expect(out.Plan.Len()).To(Equal(4))
			Expect(out.Plan.Steps[0].Action.Name()).To(Equal("pickup"))
			Expect(out.Plan.Steps[2].Action.Name()).To(Equal("pickup"))
			Expect(out.Plan.Final()[domain.AtomOf("stones", "pile")].String()).To(Equal("0"))
			Expect(plan.Verify(p, out.Plan)).To(Succeed())
		})

		It("reports no plan below the minimal horizon", func() {
			out := run(p, bounded(3))
			Expect(out.Status).To(Equal(search.NoPlanWithinBound))
			Expect(out.Plan).To(BeNil())
		})
	})

	Context("kettle", func() {
		BeforeEach(func() {
			p, err = scenarios.Kettle()
			Expect(err).NotTo(HaveOccurred())
		})

		It("fills both cups in two steps", func() {
			out := run(p, bounded(5))
			Expect(out.Status).To(Equal(search.Found))
			Expect(out.Plan.Len()).To(Equal(2))
			args := []string{out.Plan.Steps[0].Action.Args[0], out.Plan.Steps[1].Action.Args[0]}
			Expect(args).To(ConsistOf("cup1", "cup2"))
			Expect(out.Plan.Steps[0].After[domain.AtomOf("level", "kettle")].String()).To(Equal("half"))
			Expect(out.Plan.Final()[domain.AtomOf("level", "kettle")].String()).To(Equal("empty"))
		})
	})

	Context("over-constrained", func() {
		It("exhausts the bound", func() {
			p, err = scenarios.OverConstrained()
			Expect(err).NotTo(HaveOccurred())
			out := run(p, bounded(5))
			Expect(out.Status).To(Equal(search.NoPlanWithinBound))
			Expect(out.Horizon).To(Equal(5))
			Expect(out.Attempts).To(HaveLen(5))
		})
	})

	Context("malformed domain", func() {
		It("is rejected before any search", func() {
			_, err := domain.New(scenarios.Malformed())
			Expect(err).To(HaveOccurred())
			Expect(domain.IsDomainError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("fluent stones takes 1 objects, got 2"))
		})
	})

	DescribeTable("agrees with breadth-first search",
		func(name string, edit func(c *search.Config)) {
			p, err := scenarios.Load(name)
			Expect(err).NotTo(HaveOccurred())
			c := config(edit)
			c.MaxHorizon = 6
			out := run(p, c)
			want := shortest(p, 6)
			if want < 0 {
				Expect(out.Status).To(Equal(search.NoPlanWithinBound))
				return
			}
			Expect(out.Status).To(Equal(search.Found))
			Expect(out.Plan.Len()).To(Equal(want))
			Expect(plan.Verify(p, out.Plan)).To(Succeed())

			c.MaxHorizon = want - 1
			if want > 1 {
				Expect(run(p, c).Status).To(Equal(search.NoPlanWithinBound))
			} else {
				_, err := search.New(search.WithConfig(c))
				Expect(err).To(MatchError(ContainSubstring("maximum horizon 0")))
			}
		},
		Entry("stones", "stones", unchanged),
		Entry("kettle", "kettle", unchanged),
		Entry("over-constrained", "over-constrained", unchanged),
		Entry("stones on gophersat", "stones", func(c *search.Config) { c.Backend = "gophersat" }),
		Entry("kettle on gophersat", "kettle", func(c *search.Config) { c.Backend = "gophersat" }),
		Entry("stones in parallel", "stones", func(c *search.Config) { c.Parallelism = 4 }),
		Entry("over-constrained in parallel", "over-constrained", func(c *search.Config) { c.Parallelism = 3 }),
	)

	It("gives the same plan length on every backend and parallelism", func() {
		for _, name := range scenarios.Names() {
			p, err := scenarios.Load(name)
			Expect(err).NotTo(HaveOccurred())
			var lengths []int
			for _, backend := range solver.Backends() {
				for _, parallelism := range []int{1, 3} {
					c := bounded(6)
					c.Backend, c.Parallelism = backend, parallelism
					out := run(p, c)
					n := -1
					if out.Status == search.Found {
						n = out.Plan.Len()
					}
					lengths = append(lengths, n)
				}
			}
			for _, n := range lengths {
				Expect(n).To(Equal(lengths[0]), "scenario %s", name)
			}
		}
	})
})
