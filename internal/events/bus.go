/*
Copyright 2025 The KCP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Listener is notified synchronously about every published event.
type Listener func(Event)

// ListenerHandle identifies a registered listener so it can be removed again.
type ListenerHandle uint64

type registration struct {
	handle   ListenerHandle
	listener Listener
}

// Bus fans out reconciliation events to its listeners. Delivery happens on
// the publishing goroutine, in registration order. A panicking listener is
// logged and does not affect the other listeners or the publisher.
type Bus struct {
	log   *zap.SugaredLogger
	audit bool

	lock       sync.RWMutex
	listeners  []registration
	lastHandle ListenerHandle
}

type Option func(*Bus)

// WithAuditLog enables the built-in echo of every event to the bus' logger.
func WithAuditLog() Option {
	return func(b *Bus) {
		b.audit = true
	}
}

func NewBus(log *zap.SugaredLogger, opts ...Option) *Bus {
	b := &Bus{
		log: log.Named("events"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Bus) AddListener(listener Listener) ListenerHandle {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.lastHandle++
	b.listeners = append(b.listeners, registration{
		handle:   b.lastHandle,
		listener: listener,
	})

	b.log.Debugw("Registered reconciliation event listener", "handle", b.lastHandle)

	return b.lastHandle
}

// RemoveListener unregisters the listener and returns false if the handle
// was unknown.
func (b *Bus) RemoveListener(handle ListenerHandle) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	for i, reg := range b.listeners {
		if reg.handle == handle {
			// never modify the backing array, Publish may be iterating over it
			listeners := make([]registration, 0, len(b.listeners)-1)
			listeners = append(listeners, b.listeners[:i]...)
			b.listeners = append(listeners, b.listeners[i+1:]...)

			b.log.Debugw("Removed reconciliation event listener", "handle", handle)
			return true
		}
	}

	return false
}

func (b *Bus) Clear() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.listeners = nil
	b.log.Debug("Cleared all reconciliation event listeners")
}

func (b *Bus) Count() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return len(b.listeners)
}

func (b *Bus) Publish(event Event) {
	if b.audit {
		b.echo(event)
	}

	b.lock.RLock()
	listeners := b.listeners
	b.lock.RUnlock()

	for _, reg := range listeners {
		b.notify(reg, event)
	}
}

func (b *Bus) notify(reg registration, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("Reconciliation event listener failed",
				"handle", reg.handle,
				"event", event.String(),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()

	reg.listener(event)
}

func (b *Bus) echo(event Event) {
	if event.Phase == PhaseBefore {
		b.log.Infof("RECONCILIATION_START: %s %s %s/%s", event.Operation, event.Kind, event.Namespace, event.Name)
		return
	}

	result := "SUCCESS"
	if !event.IsSuccess() {
		result = "FAILED"
	}

	b.log.Infof("RECONCILIATION_END: %s %s %s/%s - %s %s", event.Operation, event.Kind, event.Namespace, event.Name, result, event.Message)
}
