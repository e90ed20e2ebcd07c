package main

import (
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// tdaMap is the pseudo device map used in status lines for checkpoints
// that concern the TDA capture board rather than a radar chip.
const tdaMap mmwlink.DevMap = 32

// CaptureSession is one recording from arming to dispatch handoff. The
// controller owns it until the directory is handed to the transfer
// queue; after that the background copy is on its own.
type CaptureSession struct {
	ID     int
	Dir    string
	Arm    mmwlink.TdaArmCfg
	Start  time.Time
	Status int
}

// Controller drives the capture lifecycle: arm the TDA, start framing on
// every chip, wait out the recording, stop and de-arm, export the
// effective configuration, and hand the capture directory to the
// transfer queue. All driver calls happen on the caller's goroutine; the
// only concurrency behind it is the transfer queue.
type Controller struct {
	drv    mmwlink.Driver
	rep    *Reporter
	cfg    *DevConfig
	queue  *TransferQueue
	ledger *Ledger     // optional
	feed   *StatusFeed // optional

	capturePath string // capture root on the board SSD

	// Fixed delays, not adaptive. Shortened in tests.
	settleDelay time.Duration // between arming and the first start-frame
	armBackoff  time.Duration // between failed arm attempts in monitor mode
	cooldown    time.Duration // between monitor cycles
}

func NewController(drv mmwlink.Driver, rep *Reporter, cfg *DevConfig, queue *TransferQueue) *Controller {
	return &Controller{
		drv:         drv,
		rep:         rep,
		cfg:         cfg,
		queue:       queue,
		capturePath: captureRoot,
		settleDelay: 2 * time.Second,
		armBackoff:  2 * time.Second,
		cooldown:    1 * time.Second,
	}
}

// recordDuration converts the CLI recording duration in minutes to a
// framing wait (1.0 min = 60000 ms).
func recordDuration(minutes float64) time.Duration {
	return time.Duration(minutes*60000) * time.Millisecond
}

// armCfg builds the TDA arming descriptor for a capture directory. The
// frame periodicity travels in milliseconds (register LSB is 5 ns).
func (c *Controller) armCfg(captureDir string) mmwlink.TdaArmCfg {
	return mmwlink.TdaArmCfg{
		CaptureDirectory:        path.Join(c.capturePath, captureDir),
		FramePeriodicityMs:      c.cfg.Frame.FramePeriodicity * 5 / (1000 * 1000),
		NumberOfFilesToAllocate: 0,
		NumberOfFramesToCapture: 0,
		DataPacking:             0, // 16-bit
	}
}

// startFrames triggers framing on every chip, highest device bit first so
// the master (which distributes the sync) goes last.
func (c *Controller) startFrames() int {
	status := 0
	for i := mmwlink.NumDevices - 1; i >= 0; i-- {
		status += c.drv.StartFrame(mmwlink.FromID(i))
	}
	return status
}

func (c *Controller) stopFrames() int {
	status := 0
	for i := mmwlink.NumDevices - 1; i >= 0; i-- {
		status += c.drv.StopFrame(mmwlink.FromID(i))
	}
	return status
}

func (c *Controller) event(sess *CaptureSession, state string) {
	if c.feed != nil {
		c.feed.Broadcast(CycleEvent{
			Cycle:     sess.ID,
			Directory: sess.Dir,
			State:     state,
			Status:    sess.Status,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// finish runs the tail of a capture cycle shared by both modes: export
// the effective configuration next to the capture, then hand the
// directory to the transfer queue. Neither step is fatal.
func (c *Controller) finish(sess *CaptureSession) {
	if err := exportConfig(c.cfg, sess.Dir+".mmwave.json", mmwlink.NumDevices); err != nil {
		exportFailures.Inc()
		log.Printf("Error: config export failed: %v", err)
	}
	if err := exportSetup(c.rep.IPAddr, sess.Dir, sess.Dir+".setup.json"); err != nil {
		exportFailures.Inc()
		log.Printf("Error: setup export failed: %v", err)
	}
	c.event(sess, "exported")

	c.queue.Dispatch(sess.Dir, sess.ID)
	c.event(sess, "dispatched")

	capturesTotal.Inc()
	if c.ledger != nil {
		if err := c.ledger.Append(sess); err != nil {
			log.Printf("Error: ledger append failed: %v", err)
		}
	}
}

// RecordOnce performs a single capture of the given duration. Arming,
// framing and de-arming are required checkpoints: any failure exits the
// process with the accumulated status.
func (c *Controller) RecordOnce(captureDir string, duration time.Duration) {
	sess := &CaptureSession{ID: 1, Dir: captureDir, Arm: c.armCfg(captureDir), Start: time.Now()}

	status := c.drv.ArmTda(sess.Arm)
	c.rep.Check(status,
		"[MMWCAS-DSP] Arming TDA",
		"[MMWCAS-DSP] TDA Arming failed!", tdaMap, true)
	c.event(sess, "armed")

	time.Sleep(c.settleDelay)

	status += c.startFrames()
	c.rep.Check(status,
		"[MMWCAS-RF] Framing ...",
		"[MMWCAS-RF] Failed to initiate framing!", c.cfg.DeviceMap, true)
	c.event(sess, "framing")

	time.Sleep(duration)

	status += c.stopFrames()
	status += c.drv.DearmTda()
	c.rep.Check(status,
		"[MMWCAS-RF] Stop recording",
		"[MMWCAS-RF] Failed to de-arm TDA board!", tdaMap, true)
	sess.Status = status
	c.event(sess, "stopped")

	time.Sleep(c.cooldown)
	c.finish(sess)
}

// Monitor repeats capture cycles of interval length until ctx is
// cancelled. Arming is the one retried stage: on failure the cycle backs
// off and re-arms the same capture directory instead of halting. The
// context is checked at every transition boundary so cancellation never
// abandons a cycle mid-driver-call.
func (c *Controller) Monitor(ctx context.Context, interval time.Duration) {
	log.Printf("[MONITOR] Starting continuous monitoring mode")
	log.Printf("[MONITOR] Interval: %v", interval)

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			return
		}

		captureDir := fmt.Sprintf("MMWL_Capture_%d", time.Now().Unix())
		sess := &CaptureSession{ID: cycle, Dir: captureDir, Arm: c.armCfg(captureDir), Start: time.Now()}
		log.Printf("[MONITOR #%d] Starting capture: %s", cycle, captureDir)

		// Arm, retrying with the same directory until it takes.
		status := 0
		for {
			status = c.drv.ArmTda(sess.Arm)
			c.rep.Check(status,
				"[MMWCAS-DSP] Arming TDA",
				"[MMWCAS-DSP] TDA Arming failed!", tdaMap, false)
			if status == 0 {
				break
			}
			captureArmRetries.Inc()
			log.Printf("[MONITOR #%d] Warning: TDA arming failed, retrying...", cycle)
			if !sleepCtx(ctx, c.armBackoff) {
				return
			}
		}
		c.event(sess, "armed")

		if !sleepCtx(ctx, c.settleDelay) {
			return
		}

		status += c.startFrames()
		c.rep.Check(status,
			"[MMWCAS-RF] Framing ...",
			"[MMWCAS-RF] Failed to initiate framing!", c.cfg.DeviceMap, false)
		c.event(sess, "framing")

		if !sleepCtx(ctx, interval) {
			return
		}

		status += c.stopFrames()
		status += c.drv.DearmTda()
		c.rep.Check(status,
			"[MMWCAS-RF] Stop recording",
			"[MMWCAS-RF] Failed to de-arm TDA board!", tdaMap, false)
		sess.Status = status
		c.event(sess, "stopped")

		log.Printf("[MONITOR #%d] Capture complete", cycle)
		c.finish(sess)

		if !sleepCtx(ctx, c.cooldown) {
			return
		}
		log.Printf("[MONITOR] Ready for next capture...")
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first. Reports whether
// the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
