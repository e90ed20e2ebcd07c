package main

import (
	"fmt"
	"log"
	"os/exec"
	"path"
	"path/filepath"
	"sync"
)

// minDestFreeBytes is the free-space floor under the destination below
// which a warning is logged before copying. 12 chirps of 4-device complex
// data fill disks quickly.
const minDestFreeBytes = 1 << 30

// TransferJob identifies one finished capture directory to offload.
type TransferJob struct {
	CaptureID int
	Dir       string
}

// TransferQueue offloads finished captures from the board's SSD to the
// local post-processing directory. Dispatch never blocks the capture
// loop: jobs go into a bounded channel served by a fixed pool of workers,
// and when the queue is full the job is dropped and counted rather than
// stalling the next capture cycle. Transfer results are logged and
// counted but never reported back to the caller.
type TransferQueue struct {
	jobs      chan TransferJob
	wg        sync.WaitGroup
	boardHost string
	srcRoot   string
	dstRoot   string

	runCmd func(name string, args ...string) error // overridable for tests
}

func NewTransferQueue(workers, depth int, boardAddr, srcRoot, dstRoot string) *TransferQueue {
	q := &TransferQueue{
		jobs:      make(chan TransferJob, depth),
		boardHost: "root@" + boardAddr,
		srcRoot:   srcRoot,
		dstRoot:   dstRoot,
		runCmd: func(name string, args ...string) error {
			out, err := exec.Command(name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", name, err, out)
			}
			return nil
		},
	}
	q.start(workers)
	return q
}

func (q *TransferQueue) start(workers int) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Dispatch enqueues a capture directory for background transfer and
// returns immediately. The bool reports whether the job was accepted.
func (q *TransferQueue) Dispatch(captureDir string, captureID int) bool {
	select {
	case q.jobs <- TransferJob{CaptureID: captureID, Dir: captureDir}:
		transferQueueDepth.Set(float64(len(q.jobs)))
		return true
	default:
		transferDrops.Inc()
		log.Printf("[TRANSFER %d] queue full, dropping transfer of %s", captureID, captureDir)
		return false
	}
}

// Close stops accepting jobs and waits for in-flight transfers to finish.
func (q *TransferQueue) Close() {
	close(q.jobs)
	q.wg.Wait()
}

func (q *TransferQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		transferQueueDepth.Set(float64(len(q.jobs)))
		q.transfer(job)
	}
}

func (q *TransferQueue) transfer(job TransferJob) {
	if free, err := destFreeBytes(q.dstRoot); err == nil && free < minDestFreeBytes {
		log.Printf("[TRANSFER %d] warning: only %d MB free under %s",
			job.CaptureID, free/(1024*1024), q.dstRoot)
	}

	src := fmt.Sprintf("%s:%s", q.boardHost, path.Join(q.srcRoot, job.Dir))
	dst := filepath.Join(q.dstRoot, job.Dir)

	log.Printf("[TRANSFER %d] Starting: %s -> %s", job.CaptureID, src, dst)
	// The TDA board image only speaks ssh-rsa.
	err := q.runCmd("scp",
		"-O",
		"-oHostKeyAlgorithms=+ssh-rsa",
		"-oPubkeyAcceptedAlgorithms=+ssh-rsa",
		"-r", src, dst)
	if err != nil {
		transferFailures.Inc()
		log.Printf("[TRANSFER %d] Failed: %v", job.CaptureID, err)
		return
	}
	transfersDone.Inc()
	log.Printf("[TRANSFER %d] Completed", job.CaptureID)
}
