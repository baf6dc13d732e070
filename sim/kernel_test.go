package sim

import (
	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = Describe("Kernel", func() {
	var kernel *Kernel

	BeforeEach(func() {
		kernel = NewKernel()
	})

	It("should finish immediately without roots", func() {
		err := kernel.Run()

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(kernel.CurrentTime()).To(gomega.Equal(VTimeInSec(0)))
	})

	It("should refuse to be re-entered", func() {
		var nested error

		err := kernel.Run(func(p *Proc) (any, error) {
			nested = kernel.Run()
			return nil, nil
		})

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(nested).To(gomega.Equal(ErrKernelRunning))
	})

	It("should advance time to the earliest wake-up", func() {
		var resumedAt VTimeInSec

		err := kernel.Run(func(p *Proc) (any, error) {
			if err := p.Hold(4.5); err != nil {
				return nil, err
			}
			resumedAt = p.Now()
			return nil, nil
		})

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(resumedAt).To(gomega.Equal(VTimeInSec(4.5)))
	})

	It("should include the till bound", func() {
		var times []VTimeInSec

		err := kernel.RunUntil(5,
			func(p *Proc) (any, error) {
				for {
					if err := p.Hold(2.5); err != nil {
						return nil, err
					}
					times = append(times, p.Now())
				}
			})

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(times).To(gomega.Equal([]VTimeInSec{2.5, 5}))
	})

	It("should never move time backwards", func() {
		var times []VTimeInSec
		observe := func(p *Proc) error {
			times = append(times, p.Now())
			return nil
		}

		err := kernel.Run(
			func(p *Proc) (any, error) {
				for i := 0; i < 4; i++ {
					if err := p.Hold(2); err != nil {
						return nil, err
					}
					if err := observe(p); err != nil {
						return nil, err
					}
				}
				return nil, nil
			},
			func(p *Proc) (any, error) {
				for i := 0; i < 4; i++ {
					if err := p.Hold(3); err != nil {
						return nil, err
					}
					if err := observe(p); err != nil {
						return nil, err
					}
				}
				return nil, nil
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		for i := 1; i < len(times); i++ {
			gomega.Expect(times[i]).To(gomega.BeNumerically(">=", times[i-1]))
		}
	})

	It("should resume subscribers in subscription order", func() {
		flag := NewFlag()
		var order []string

		waiter := func(name string) Activity {
			return func(p *Proc) (any, error) {
				if err := p.Wait(flag); err != nil {
					return nil, err
				}
				order = append(order, name)
				return nil, nil
			}
		}

		err := kernel.Run(
			waiter("A"),
			waiter("B"),
			func(p *Proc) (any, error) {
				if err := p.Hold(1); err != nil {
					return nil, err
				}
				return nil, flag.Set(p, true)
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(order).To(gomega.Equal([]string{"A", "B"}))
	})

	It("should charge a turn for waiting on a true condition", func() {
		var sequence []string

		err := kernel.Run(
			func(p *Proc) (any, error) {
				if err := p.Wait(Instant); err != nil {
					return nil, err
				}
				sequence = append(sequence, "first")
				return nil, nil
			},
			func(p *Proc) (any, error) {
				sequence = append(sequence, "second")
				return nil, nil
			},
		)

		gomega.Expect(err).To(gomega.BeNil())
		// the first task waited even though Instant is always true,
		// letting the second task run before it
		gomega.Expect(sequence).To(gomega.Equal([]string{"second", "first"}))
	})

	It("should run again with fresh state", func() {
		body := func(p *Proc) (any, error) {
			return nil, p.Hold(3)
		}

		gomega.Expect(kernel.Run(body)).To(gomega.BeNil())
		gomega.Expect(kernel.Run(body)).To(gomega.BeNil())
		gomega.Expect(kernel.CurrentTime()).To(gomega.Equal(VTimeInSec(3)))
	})

	It("should close suspended tasks when the run ends", func() {
		var task *Task

		err := kernel.RunUntil(1, func(p *Proc) (any, error) {
			return nil, p.Scope(func(s *Scope) error {
				task = s.Do(func(p *Proc) (any, error) {
					return nil, p.Wait(Eternity)
				})
				return nil
			})
		})

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(task.Status()).To(gomega.Equal(TaskStateCancelled))
	})
})
