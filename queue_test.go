// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq_test

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/turnq"
)

func TestMPMCQueueBasic(t *testing.T) {
	q := turnq.NewMPMCQueue[int](4)
	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}
	if !q.IsEmpty() {
		t.Fatal("new queue should be empty")
	}

	for i := range 4 {
		v := i + 100
		if err := q.Write(&v); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
	}
	if !q.IsFull() {
		t.Fatal("queue with Cap() writes should report full")
	}

	v := 999
	if err := q.Write(&v); !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("Write on full: got %v, want ErrWouldBlock", err)
	}

	for i := range 4 {
		got, err := q.Read()
		if err != nil {
			t.Fatalf("Read(%d): %v", i, err)
		}
		if got != i+100 {
			t.Fatalf("Read(%d): got %d, want %d", i, got, i+100)
		}
	}

	if _, err := q.Read(); !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("Read on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestMPMCQueueCapacityOne is spec.md §8's rendezvous boundary case.
func TestMPMCQueueCapacityOne(t *testing.T) {
	q := turnq.NewMPMCQueue[int](1)
	v := 42
	if err := q.Write(&v); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w := 43
	if err := q.Write(&w); !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("second Write on capacity-1 queue: got %v, want ErrWouldBlock", err)
	}
	got, err := q.Read()
	if err != nil || got != 42 {
		t.Fatalf("Read: got (%d, %v), want (42, nil)", got, err)
	}
}

// TestMPMCQueueSPSCDrain is spec.md §8 concrete scenario 1.
func TestMPMCQueueSPSCDrain(t *testing.T) {
	const n = 1000
	q := turnq.NewMPMCQueue[int](4)

	go func() {
		for i := range n {
			v := i
			q.BlockingWrite(&v)
		}
	}()

	for i := range n {
		got := q.BlockingRead()
		if got != i {
			t.Fatalf("BlockingRead(%d): got %d, want %d", i, got, i)
		}
	}
}

// TestMPMCQueueSum is a scaled-down version of spec.md §8 concrete
// scenario 2: P producers and C consumers exchange M tokens; the sum of
// everything dequeued must equal the sum of everything enqueued.
func TestMPMCQueueSum(t *testing.T) {
	if turnq.RaceEnabled {
		t.Skip("skip: linearizability test requires concurrent access")
	}

	const numProducers = 10
	const numConsumers = 10
	const perProducer = 2000
	const total = numProducers * perProducer

	q := turnq.NewMPMCQueue[int64](128)

	var wg sync.WaitGroup
	var sum atomix.Int64
	var consumed atomix.Int64

	for p := range numProducers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perProducer {
				v := int64(base*perProducer + i)
				q.BlockingWrite(&v)
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for consumed.Load() < int64(total) {
				n := consumed.Add(1)
				if n > int64(total) {
					return
				}
				v := q.BlockingRead()
				sum.Add(v)
			}
		}()
	}

	wg.Wait()

	var want int64
	for i := 0; i < total; i++ {
		want += int64(i)
	}
	if sum.Load() != want {
		t.Fatalf("sum of dequeued values: got %d, want %d", sum.Load(), want)
	}
}

// TestMPMCQueueNonBlockingFullEmpty is spec.md §8 concrete scenario 3.
func TestMPMCQueueNonBlockingFullEmpty(t *testing.T) {
	q := turnq.NewMPMCQueue[int](2)
	a, b, c := 1, 2, 3
	if err := q.Write(&a); err != nil {
		t.Fatalf("Write(1): %v", err)
	}
	if err := q.Write(&b); err != nil {
		t.Fatalf("Write(2): %v", err)
	}
	if err := q.Write(&c); !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("third Write: got %v, want ErrWouldBlock", err)
	}

	if v, err := q.Read(); err != nil || v != 1 {
		t.Fatalf("first Read: got (%d, %v), want (1, nil)", v, err)
	}
	if v, err := q.Read(); err != nil || v != 2 {
		t.Fatalf("second Read: got (%d, %v), want (2, nil)", v, err)
	}
	if _, err := q.Read(); !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("third Read: got %v, want ErrWouldBlock", err)
	}
}

// TestMPMCQueueDeadline is spec.md §8 concrete scenario 4.
func TestMPMCQueueDeadline(t *testing.T) {
	q := turnq.NewMPMCQueue[int](1)

	if _, err := q.TryReadUntil(time.Now().Add(30 * time.Millisecond)); !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("TryReadUntil on empty queue: got %v, want ErrWouldBlock", err)
	}

	go func() {
		time.Sleep(25 * time.Millisecond)
		v := 7
		q.BlockingWrite(&v)
	}()

	got, err := q.TryReadUntil(time.Now().Add(2 * time.Second))
	if err != nil {
		t.Fatalf("TryReadUntil after delayed write: %v", err)
	}
	if got != 7 {
		t.Fatalf("TryReadUntil value: got %d, want 7", got)
	}
}

func TestMPMCQueueTryWriteUntilTimesOutWhenFull(t *testing.T) {
	q := turnq.NewMPMCQueue[int](1)
	v := 1
	if err := q.Write(&v); err != nil {
		t.Fatalf("Write: %v", err)
	}

	w := 2
	err := q.TryWriteUntil(time.Now().Add(30*time.Millisecond), &w)
	if !errors.Is(err, turnq.ErrWouldBlock) {
		t.Fatalf("TryWriteUntil on full queue: got %v, want ErrWouldBlock", err)
	}
}

// TestMPMCQueueSizeLinearizable exercises spec.md §4.4/§8 invariant 4: the
// snapshot equals pushes-minus-pops at some instant during the call, and
// tracks a single-threaded caller exactly.
func TestMPMCQueueSizeLinearizable(t *testing.T) {
	q := turnq.NewMPMCQueue[int](8)
	if q.Size() != 0 {
		t.Fatalf("Size on empty queue: got %d, want 0", q.Size())
	}

	for i := range 5 {
		v := i
		if err := q.Write(&v); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
		if q.Size() != int64(i+1) {
			t.Fatalf("Size after %d writes: got %d, want %d", i+1, q.Size(), i+1)
		}
	}

	for i := range 3 {
		if _, err := q.Read(); err != nil {
			t.Fatalf("Read(%d): %v", i, err)
		}
	}
	if q.Size() != 2 {
		t.Fatalf("Size after 5 writes, 3 reads: got %d, want 2", q.Size())
	}
}

// TestMPMCQueueFIFONoLossNoDuplication is spec.md §8 invariant 1 and 2:
// per-producer values are delivered in order, and the overall multiset of
// delivered values matches exactly what was sent (no loss, no
// duplication), under contention from several producers and consumers.
func TestMPMCQueueFIFONoLossNoDuplication(t *testing.T) {
	if turnq.RaceEnabled {
		t.Skip("skip: linearizability test requires concurrent access")
	}

	const numProducers = 6
	const perProducer = 500
	q := turnq.NewMPMCQueue[int](32)

	var wg sync.WaitGroup
	results := make([][]int, numProducers)
	var mu sync.Mutex
	var all []int

	done := make(chan struct{})
	var consumerWg sync.WaitGroup
	consumerWg.Add(1)
	go func() {
		defer consumerWg.Done()
		backoff := iox.Backoff{}
		for {
			select {
			case <-done:
				// Drain whatever remains.
				for {
					v, err := q.Read()
					if err != nil {
						return
					}
					mu.Lock()
					all = append(all, v)
					mu.Unlock()
				}
			default:
				v, err := q.Read()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				mu.Lock()
				all = append(all, v)
				mu.Unlock()
			}
		}
	}()

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			own := make([]int, 0, perProducer)
			for i := range perProducer {
				v := id*1_000_000 + i
				q.BlockingWrite(&v)
				own = append(own, v)
			}
			results[id] = own
		}(p)
	}

	wg.Wait()
	time.Sleep(20 * time.Millisecond) // let the consumer drain the tail
	close(done)
	consumerWg.Wait()

	want := make([]int, 0, numProducers*perProducer)
	for _, r := range results {
		want = append(want, r...)
	}

	mu.Lock()
	got := append([]int(nil), all...)
	mu.Unlock()

	if len(got) != len(want) {
		t.Fatalf("delivered %d values, want %d", len(got), len(want))
	}

	// Per-producer FIFO: got is still in delivery order here.
	next := make([]int, numProducers)
	for _, v := range got {
		id, seq := v/1_000_000, v%1_000_000
		if seq != next[id] {
			t.Fatalf("producer %d: delivered seq %d, want %d", id, seq, next[id])
		}
		next[id]++
	}

	sort.Ints(want)
	sort.Ints(got)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("multiset mismatch at sorted index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}
