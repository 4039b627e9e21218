// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

// Options configures queue creation and shape selection.
type Options struct {
	singleProducer bool
	singleConsumer bool
	capacity       int
}

// Builder creates queues with fluent configuration.
//
// Builder picks between the two shapes this package provides: a
// single-producer/single-consumer caller gets the lighter-weight
// [SPSC] Lamport ring; anyone else gets the ticket-based [MPMCQueue].
//
// Example:
//
//	// SPSC queue (single producer, single consumer)
//	q := turnq.BuildSPSC[Event](turnq.New(1024).SingleProducer().SingleConsumer())
//
//	// MPMCQueue (general purpose, any number of producers/consumers)
//	q := turnq.BuildMPMC[Request](turnq.New(4096))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Unlike SPSC's own constructor, the builder does not round capacity up
// to a power of 2 when the result will be an MPMCQueue; it only does so
// when SingleProducer().SingleConsumer() select the SPSC shape.
//
// Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("turnq: capacity must be >= 1")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Build creates a Queue[T] with automatic shape selection:
// SingleProducer().SingleConsumer() yields an SPSC, anything else an
// MPMCQueue.
func Build[T any](b *Builder) Queue[T] {
	if b.opts.singleProducer && b.opts.singleConsumer {
		return NewSPSC[T](b.opts.capacity)
	}
	return NewMPMCQueue[T](b.opts.capacity)
}

// BuildSPSC creates an SPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSC[T any](b *Builder) *SPSC[T] {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("turnq: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	return NewSPSC[T](b.opts.capacity)
}

// BuildMPMC creates an MPMCQueue with compile-time type safety.
func BuildMPMC[T any](b *Builder) *MPMCQueue[T] {
	return NewMPMCQueue[T](b.opts.capacity)
}

// roundToPow2 rounds n up to the next power of 2, used by SPSC's
// mask-based indexing.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
