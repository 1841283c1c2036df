package erpc

import (
	"context"
	"time"

	"github.com/jiangxiaosheng/eRPC/internal/clock"
	"github.com/jiangxiaosheng/eRPC/session"
	"github.com/jiangxiaosheng/eRPC/sm"
)

// RunEventLoopOnce runs a single iteration: drain SM-RX if non-empty, fire
// due retries, then the (out-of-scope) RX-completion and TX-work steps.
// SM handling is never reentrant within one call: a handler dispatched from
// step 1 cannot trigger another drain in the same tick.
func (r *Rpc) RunEventLoopOnce(ctx context.Context) error {
	if !r.acquire("RunEventLoopOnce") {
		return &UsageError{Op: "RunEventLoopOnce", Reason: "called concurrently from another goroutine"}
	}
	defer r.release()

	r.runOnceLocked(ctx)
	return nil
}

func (r *Rpc) runOnceLocked(ctx context.Context) {
	if !r.hk.RXEmpty() {
		for _, wi := range r.hk.DrainRX() {
			r.dispatchSmWorkItem(ctx, wi)
		}
	}

	if r.retryQ.Len() > 0 {
		now := time.Now()
		if deadline, ok := r.retryQ.EarliestDeadline(); ok && !deadline.After(now) {
			r.retryQ.Fire(now, func(s *session.Session) {
				pktType := sm.PktTypeConnectReq
				if s.State == session.StateDisconnectInProgress {
					pktType = sm.PktTypeDisconnectReq
				}
				r.metrics.IncCounter("erpc.sm_req.retried", map[string]string{"pkt_type": pktType.String()})
				r.enqueueSmReq(s, pktType)
			})
		}
	}

	// RX completions and datapath TX work are external-collaborator
	// concerns (see transport.Transport's burst send/recv, out of scope
	// for this module per its Non-goals); there is nothing for this loop
	// to drive until a datapath is wired in on top of this runtime.
}

// RunEventLoop runs RunEventLoopOnce repeatedly until ctx is done. The
// original implementation runs until process termination; ctx.Done() is
// this module's substitute for that, since there is no "until the process
// exits" signal to poll for in a library.
func (r *Rpc) RunEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.RunEventLoopOnce(ctx); err != nil {
			return err
		}
	}
}

// RunEventLoopTimeout runs RunEventLoopOnce repeatedly until ms milliseconds
// of wall-clock time have elapsed, or ctx is done, whichever comes first.
func (r *Rpc) RunEventLoopTimeout(ctx context.Context, ms int64) error {
	elapsed := clock.Start()
	for elapsed.MS() < ms {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.RunEventLoopOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}
