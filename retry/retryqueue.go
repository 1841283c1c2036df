// Package retry implements the session-management retry queue: an ordered
// collection of sessions with an in-flight SM request and a next-fire
// deadline. A session is a member of the queue if and only if its state is
// ConnectInProgress or DisconnectInProgress (see session.State.
// AwaitingSmResponse); the event loop checks this invariant is never broken
// by construction, not by runtime assertion.
package retry

import (
	"time"

	"github.com/jiangxiaosheng/eRPC/session"
	"golang.org/x/time/rate"
)

type entry struct {
	session  *session.Session
	deadline time.Time
}

// Queue holds sessions awaiting a session-management response, keyed by
// session identity. It is only ever touched from the creator thread, same
// as every other piece of session state.
type Queue struct {
	timeout time.Duration
	entries []entry
	index   map[*session.Session]int

	// limiter paces Fire so a burst of simultaneously expiring sessions
	// (e.g. many sessions that all timed out on the same tick) does not
	// emit an unbounded number of SM-TX packets in one event-loop
	// iteration. Sessions skipped this tick remain due and are retried on
	// the next call to Fire.
	limiter *rate.Limiter
}

// New constructs an empty Queue with the given per-request retry timeout.
// burstPerTick bounds how many retries Fire will re-emit in a single call;
// pass 0 to disable pacing (every due session fires every tick).
func New(timeout time.Duration, burstPerTick int) *Queue {
	q := &Queue{
		timeout: timeout,
		index:   make(map[*session.Session]int),
	}
	if burstPerTick > 0 {
		// Refill at the same cadence retries are re-emitted on, capped at
		// burstPerTick tokens so a single Fire call can't exceed it.
		refillPerSec := float64(burstPerTick)
		if timeout > 0 {
			refillPerSec = float64(burstPerTick) / timeout.Seconds()
		}
		q.limiter = rate.NewLimiter(rate.Limit(refillPerSec), burstPerTick)
	}
	return q
}

// Add registers s with a deadline of now + timeout. It is a no-op (and
// returns false) if s is already present: the original implementation
// treats double-add as a programming error guarded by an assertion; this
// Go port degrades to a safe no-op instead of panicking, since Add is
// reachable from handler code driven by untrusted wire input.
func (q *Queue) Add(s *session.Session, now time.Time) bool {
	if _, ok := q.index[s]; ok {
		return false
	}
	q.index[s] = len(q.entries)
	q.entries = append(q.entries, entry{session: s, deadline: now.Add(q.timeout)})
	return true
}

// Remove drops s from the queue. It is a no-op if s is absent.
func (q *Queue) Remove(s *session.Session) {
	i, ok := q.index[s]
	if !ok {
		return
	}
	last := len(q.entries) - 1
	q.entries[i] = q.entries[last]
	q.index[q.entries[i].session] = i
	q.entries = q.entries[:last]
	delete(q.index, s)
}

// Contains reports whether s currently has an in-flight SM request tracked
// by the queue.
func (q *Queue) Contains(s *session.Session) bool {
	_, ok := q.index[s]
	return ok
}

// Len reports the number of sessions currently tracked.
func (q *Queue) Len() int {
	return len(q.entries)
}

// EarliestDeadline returns the soonest deadline among all tracked sessions,
// and false if the queue is empty. The event loop uses this to decide
// whether Fire is worth calling on a given tick.
func (q *Queue) EarliestDeadline() (time.Time, bool) {
	if len(q.entries) == 0 {
		return time.Time{}, false
	}
	earliest := q.entries[0].deadline
	for _, e := range q.entries[1:] {
		if e.deadline.Before(earliest) {
			earliest = e.deadline
		}
	}
	return earliest, true
}

// Fire re-emits the SM request for every session whose deadline has passed
// as of now, via emit, and resets their deadline to now + timeout. Sessions
// skipped due to pacing remain due and are retried on the next call.
func (q *Queue) Fire(now time.Time, emit func(*session.Session)) {
	due := make([]*session.Session, 0, len(q.entries))
	for i := range q.entries {
		if !q.entries[i].deadline.After(now) {
			due = append(due, q.entries[i].session)
		}
	}

	for _, s := range due {
		if q.limiter != nil && !q.limiter.Allow() {
			continue
		}
		emit(s)
		if i, ok := q.index[s]; ok {
			q.entries[i].deadline = now.Add(q.timeout)
		}
	}
}
