// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"sync"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// outboundQueue is the sim-thread-to-IPC-thread event queue: unbounded,
// but coalesces low-priority kinds (see lowPriority) so a burst of
// update ticks the IPC thread falls behind on collapses to the latest
// one rather than backing up memory.
type outboundQueue struct {
	mu     sync.Mutex
	items  []ipc.Event
	notify chan struct{}
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{notify: make(chan struct{}, 1)}
}

func (q *outboundQueue) push(ev ipc.Event) {
	q.mu.Lock()
	if lowPriority(ev.Kind) {
		for i := range q.items {
			if q.items[i].Kind == ev.Kind {
				q.items[i] = ev
				q.mu.Unlock()
				q.wake()
				return
			}
		}
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.wake()
}

func (q *outboundQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// drain returns and clears everything currently queued. Called from
// the IPC thread's writer loop, and from ipcClient.flush during
// Release.
func (q *outboundQueue) drain() []ipc.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// wait blocks until drain would return something or ctx is done.
func (q *outboundQueue) wait(ctx context.Context) bool {
	select {
	case <-q.notify:
		return true
	case <-ctx.Done():
		return false
	}
}

// inboundQueueSize bounds the command backlog the sim thread has not
// yet drained. Sized generously relative to per-frame command volume
// so normal play never hits it; only a client spamming faster than
// the sim thread drains does.
const inboundQueueSize = 1024

// inboundQueue is the IPC-thread-to-sim-thread command queue: bounded,
// non-blocking on the producer side so a full queue never stalls the
// socket reader.
type inboundQueue struct {
	ch chan ipc.Command
}

func newInboundQueue() *inboundQueue {
	return &inboundQueue{ch: make(chan ipc.Command, inboundQueueSize)}
}

// tryPush attempts to enqueue cmd without blocking. ok is false when
// the queue is full; the caller (the IPC reader) is responsible for
// turning that into a command_error("backpressure") event.
func (q *inboundQueue) tryPush(cmd ipc.Command) (ok bool) {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

// drainAll removes and returns every command currently queued, without
// blocking. Called once per sim-thread update tick.
func (q *inboundQueue) drainAll() []ipc.Command {
	var cmds []ipc.Command
	for {
		select {
		case cmd := <-q.ch:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}
