package main

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// stubQueue builds a queue whose scp invocations are replaced by run.
// Workers are started only after the stub is in place.
func stubQueue(workers, depth int, run func(name string, args ...string) error) *TransferQueue {
	q := &TransferQueue{
		jobs:      make(chan TransferJob, depth),
		boardHost: "root@192.168.33.180",
		srcRoot:   "/mnt/ssd",
		dstRoot:   ".",
		runCmd:    run,
	}
	q.start(workers)
	return q
}

// Dispatch must hand control back immediately no matter how long the
// transfers behind it take or in which order they finish.
func TestDispatchNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	q := stubQueue(2, 8, func(name string, args ...string) error {
		<-release
		return nil
	})

	start := time.Now()
	for i := 1; i <= 8; i++ {
		q.Dispatch("capture", i)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("8 dispatches took %v with transfers blocked, want immediate return", elapsed)
	}

	close(release)
	q.Close()
}

// Transfers complete independently of dispatch order: a short transfer
// dispatched after a long one finishes first.
func TestTransferCompletionOrderIndependent(t *testing.T) {
	var mu sync.Mutex
	var finished []int
	slowDone := make(chan struct{})

	q := stubQueue(2, 8, func(name string, args ...string) error {
		id := 2
		if strings.Contains(args[len(args)-2], "slow") {
			id = 1
			<-slowDone
		}
		mu.Lock()
		finished = append(finished, id)
		mu.Unlock()
		return nil
	})

	q.Dispatch("slow", 1)
	time.Sleep(50 * time.Millisecond) // let a worker pick up the slow job
	q.Dispatch("fast", 2)

	// Wait for the fast transfer, then release the slow one.
	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(finished)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the fast transfer")
		case <-time.After(time.Millisecond):
		}
	}
	close(slowDone)
	q.Close()

	if finished[0] != 2 {
		t.Errorf("first finished transfer = %d, want the fast one (2)", finished[0])
	}
}

// A full queue drops the job instead of stalling the capture loop.
func TestDispatchDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := stubQueue(1, 1, func(name string, args ...string) error {
		<-release
		return nil
	})

	q.Dispatch("a", 1)                // picked up by the worker
	time.Sleep(50 * time.Millisecond) // worker now blocked in the stub
	if ok := q.Dispatch("b", 2); !ok {
		t.Fatalf("dispatch b rejected with queue space available")
	}
	if ok := q.Dispatch("c", 3); ok {
		t.Errorf("dispatch c accepted with the queue full, want drop")
	}

	close(release)
	q.Close()
}

// The scp command targets the board-side capture path and the local
// destination.
func TestTransferCommand(t *testing.T) {
	var mu sync.Mutex
	var gotName string
	var gotArgs []string
	q := stubQueue(1, 1, func(name string, args ...string) error {
		mu.Lock()
		defer mu.Unlock()
		gotName = name
		gotArgs = args
		return nil
	})

	q.Dispatch("MMWL_Capture_7", 7)
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	if gotName != "scp" {
		t.Fatalf("command = %s, want scp", gotName)
	}
	src := gotArgs[len(gotArgs)-2]
	if src != "root@192.168.33.180:/mnt/ssd/MMWL_Capture_7" {
		t.Errorf("source = %s, want root@192.168.33.180:/mnt/ssd/MMWL_Capture_7", src)
	}
}
