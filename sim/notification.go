package sim

// A Notification is a synchronisation point that tasks can subscribe to.
// When a notification triggers, every subscribed task is scheduled in the
// current turn, in subscription order, and unsubscribed.
type Notification interface {
	subscribe(w *waiter)
	unsubscribe(w *waiter)
}

// A waiter records one subscription of a task to a notification. The err
// field is the signal delivered when the wake-up fires; it stays nil for
// ordinary wake-ups and carries a scope-closing signal for guard
// subscriptions.
type waiter struct {
	task *Task
	err  error

	// scheduled marks that a wake-up activation has been queued. From that
	// point on the waiter is no longer in any subscriber list, and
	// unsubscribing revokes the queued activation instead.
	scheduled bool
	revoked   bool
}

// wake queues the waiter's activation into the current turn.
func (w *waiter) wake() {
	w.scheduled = true
	w.task.kernel.scheduleNow(&activation{task: w.task, wake: w, err: w.err})
}

// notificationBase carries the subscriber list shared by all notification
// variants.
type notificationBase struct {
	waiters []*waiter
}

func (n *notificationBase) subscribe(w *waiter) {
	n.waiters = append(n.waiters, w)
}

func (n *notificationBase) unsubscribe(w *waiter) {
	if w.scheduled {
		w.revoked = true
		return
	}

	for i, existing := range n.waiters {
		if existing == w {
			n.waiters = append(n.waiters[:i], n.waiters[i+1:]...)
			return
		}
	}
}

// awakeAll schedules every current subscriber and clears the list. The
// subscriber snapshot is taken first so that subscriptions added during the
// wake-up pass are not notified in this pass.
func (n *notificationBase) awakeAll() {
	awoken := n.waiters
	n.waiters = nil
	for _, w := range awoken {
		w.wake()
	}
}

// awakeNext schedules the oldest subscriber, if any.
func (n *notificationBase) awakeNext() (*waiter, bool) {
	if len(n.waiters) == 0 {
		return nil, false
	}

	w := n.waiters[0]
	n.waiters = n.waiters[1:]
	w.wake()
	return w, true
}

func (n *notificationBase) hasWaiters() bool {
	return len(n.waiters) > 0
}
