package sim

import (
	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = Describe("Conditions", func() {
	var kernel *Kernel

	BeforeEach(func() {
		kernel = NewKernel()
	})

	It("should wake a flag subscriber on the rising edge", func() {
		flag := NewFlag()
		var wokenAt VTimeInSec

		err := kernel.Run(
			func(p *Proc) (any, error) {
				if err := p.Wait(flag); err != nil {
					return nil, err
				}
				wokenAt = p.Now()
				return nil, nil
			},
			func(p *Proc) (any, error) {
				if err := p.Hold(3); err != nil {
					return nil, err
				}
				return nil, flag.Set(p, true)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(wokenAt).To(gomega.Equal(VTimeInSec(3)))
	})

	It("should treat setting a flag to its value as a no-op", func() {
		flag := NewFlag()
		woken := false

		err := kernel.RunUntil(10,
			func(p *Proc) (any, error) {
				if err := p.Wait(flag); err != nil {
					return nil, err
				}
				woken = true
				return nil, nil
			},
			func(p *Proc) (any, error) {
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				return nil, flag.Set(p, false)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(woken).To(gomega.BeFalse())
	})

	It("should wake the inverse on the falling edge", func() {
		flag := NewFlag()
		var wokenAt VTimeInSec

		err := kernel.Run(
			func(p *Proc) (any, error) {
				if err := flag.Set(p, true); err != nil {
					return nil, err
				}
				if err := p.Hold(5); err != nil {
					return nil, err
				}
				return nil, flag.Set(p, false)
			},
			func(p *Proc) (any, error) {
				notFlag := flag.Not()
				// the flag turns true in the first turn; wait for
				// it first so the inverse starts out false
				if err := p.Wait(flag); err != nil {
					return nil, err
				}
				if err := p.Wait(notFlag); err != nil {
					return nil, err
				}
				wokenAt = p.Now()
				return nil, nil
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(wokenAt).To(gomega.Equal(VTimeInSec(5)))
	})

	It("should trigger a conjunction when the last operand turns true", func() {
		a := NewFlag()
		b := NewFlag()
		both := All(a, b)
		var wokenAt VTimeInSec

		err := kernel.Run(
			func(p *Proc) (any, error) {
				if err := p.Wait(both); err != nil {
					return nil, err
				}
				wokenAt = p.Now()
				return nil, nil
			},
			func(p *Proc) (any, error) {
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				if err := a.Set(p, true); err != nil {
					return nil, err
				}
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				return nil, b.Set(p, true)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(both.Value()).To(gomega.BeTrue())
		gomega.Expect(wokenAt).To(gomega.Equal(VTimeInSec(2)))
	})

	It("should trigger a disjunction when any operand turns true", func() {
		a := NewFlag()
		b := NewFlag()
		either := AnyOf(a, b)
		var wokenAt VTimeInSec

		err := kernel.Run(
			func(p *Proc) (any, error) {
				if err := p.Wait(either); err != nil {
					return nil, err
				}
				wokenAt = p.Now()
				return nil, nil
			},
			func(p *Proc) (any, error) {
				if err := p.Hold(4); err != nil {
					return nil, err
				}
				return nil, b.Set(p, true)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(wokenAt).To(gomega.Equal(VTimeInSec(4)))
	})

	It("should re-wait when a disjunction flickers back to false", func() {
		a := NewFlag()
		b := NewFlag()
		either := AnyOf(a, b)
		var wokenAt VTimeInSec

		err := kernel.Run(
			func(p *Proc) (any, error) {
				if err := p.Wait(either); err != nil {
					return nil, err
				}
				wokenAt = p.Now()
				return nil, nil
			},
			func(p *Proc) (any, error) {
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				return nil, a.Set(p, true)
			},
			func(p *Proc) (any, error) {
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				// lowers a again before the woken waiter gets its
				// turn: the waiter re-evaluates and keeps waiting
				if err := a.Set(p, false); err != nil {
					return nil, err
				}
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				return nil, b.Set(p, true)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(wokenAt).To(gomega.Equal(VTimeInSec(2)))
	})

	It("should invert composites by De Morgan's law", func() {
		a := NewFlag()
		b := NewFlag()

		neither := Not(AnyOf(a, b))
		gomega.Expect(neither.Value()).To(gomega.BeTrue())

		err := kernel.Run(func(p *Proc) (any, error) {
			return nil, a.Set(p, true)
		})

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(neither.Value()).To(gomega.BeFalse())
		gomega.Expect(Not(neither).Value()).To(gomega.BeTrue())
	})

	It("should detach an unobserved composite from its operands", func() {
		a := NewFlag()
		b := NewFlag()
		both := All(a, b).(*connective)

		gomega.Expect(a.listeners).To(gomega.BeEmpty())

		err := kernel.Run(
			func(p *Proc) (any, error) {
				return nil, p.Wait(both)
			},
			func(p *Proc) (any, error) {
				gomega.Expect(a.listeners).To(gomega.HaveLen(1))
				gomega.Expect(b.listeners).To(gomega.HaveLen(1))

				if err := a.Set(p, true); err != nil {
					return nil, err
				}
				return nil, b.Set(p, true)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(a.listeners).To(gomega.BeEmpty())
		gomega.Expect(b.listeners).To(gomega.BeEmpty())
	})
})
