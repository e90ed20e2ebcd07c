package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// testController wires a controller to the sim driver and a stubbed
// transfer queue with delays short enough for tests.
func testController(t *testing.T, sim *mmwlink.Sim) (*Controller, *TransferQueue) {
	t.Helper()
	// t.Chdir needs Go 1.24; do the equivalent by hand.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	queue := NewTransferQueue(1, 4, "192.168.33.180", captureRoot, ".")
	queue.runCmd = func(name string, args ...string) error { return nil }

	cfg := defaultConfig()
	ctrl := NewController(sim, testReporter("192.168.33.180"), &cfg, queue)
	ctrl.settleDelay = time.Millisecond
	ctrl.armBackoff = time.Millisecond
	ctrl.cooldown = time.Millisecond
	return ctrl, queue
}

func TestRecordDurationConversion(t *testing.T) {
	if d := recordDuration(1.0); d != 60000*time.Millisecond {
		t.Errorf("recordDuration(1.0) = %v, want 60s", d)
	}
	if d := recordDuration(0.5); d != 30000*time.Millisecond {
		t.Errorf("recordDuration(0.5) = %v, want 30s", d)
	}
}

func TestAssignDeviceMap(t *testing.T) {
	master, slaves := mmwlink.AssignDeviceMap(0b1111)
	if master != 0b0001 {
		t.Errorf("master = %#b, want 0b0001", master)
	}
	if slaves != 0b1110 {
		t.Errorf("slaves = %#b, want 0b1110", slaves)
	}

	master, slaves = mmwlink.AssignDeviceMap(0b0101)
	if master != 0b0001 || slaves != 0b0100 {
		t.Errorf("AssignDeviceMap(0b0101) = (%#b, %#b), want (0b0001, 0b0100)", master, slaves)
	}
}

// A single-shot recording walks arm, start-frame per chip (highest bit
// first), stop-frame per chip, de-arm, then exports the configuration
// and dispatches the capture directory.
func TestRecordOnceSequence(t *testing.T) {
	sim := mmwlink.NewSim()
	ctrl, queue := testController(t, sim)

	ctrl.RecordOnce("capture_test", time.Millisecond)
	queue.Close()

	names := sim.CallNames()
	want := []string{
		"ArmTda",
		"StartFrame", "StartFrame", "StartFrame", "StartFrame",
		"StopFrame", "StopFrame", "StopFrame", "StopFrame",
		"DearmTda",
	}
	if len(names) != len(want) {
		t.Fatalf("call sequence %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, names[i], want[i])
		}
	}

	wantOrder := []mmwlink.DevMap{8, 4, 2, 1}
	for i, call := range sim.CallsNamed("StartFrame") {
		if call.Map != wantOrder[i] {
			t.Errorf("StartFrame %d issued to map %d, want %d", i, call.Map, wantOrder[i])
		}
	}
	for i, call := range sim.CallsNamed("StopFrame") {
		if call.Map != wantOrder[i] {
			t.Errorf("StopFrame %d issued to map %d, want %d", i, call.Map, wantOrder[i])
		}
	}

	if _, err := os.Stat("capture_test.mmwave.json"); err != nil {
		t.Errorf("config export missing: %v", err)
	}
	if _, err := os.Stat("capture_test.setup.json"); err != nil {
		t.Errorf("setup export missing: %v", err)
	}
}

// The arming descriptor points at the capture directory under the board
// SSD and carries the frame periodicity in milliseconds.
func TestArmCfg(t *testing.T) {
	sim := mmwlink.NewSim()
	ctrl, queue := testController(t, sim)
	defer queue.Close()

	arm := ctrl.armCfg("capture_42")
	if arm.CaptureDirectory != captureRoot+"/capture_42" {
		t.Errorf("capture directory = %s, want %s/capture_42", arm.CaptureDirectory, captureRoot)
	}
	// 20000000 LSB x 5 ns = 100 ms.
	if arm.FramePeriodicityMs != 100 {
		t.Errorf("frame periodicity = %d ms, want 100", arm.FramePeriodicityMs)
	}
	if arm.DataPacking != 0 {
		t.Errorf("data packing = %d, want 0 (16-bit)", arm.DataPacking)
	}
	if arm.NumberOfFilesToAllocate != 0 || arm.NumberOfFramesToCapture != 0 {
		t.Errorf("file/frame allocation = (%d, %d), want unbounded (0, 0)",
			arm.NumberOfFilesToAllocate, arm.NumberOfFramesToCapture)
	}
}

// In monitoring mode an arming failure backs off and retries the same
// capture directory instead of halting; framing starts only once an arm
// call succeeds.
func TestMonitorRetriesFailedArm(t *testing.T) {
	sim := mmwlink.NewSim()
	ctrl, queue := testController(t, sim)

	sim.FailNext("ArmTda", 11)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.Monitor(ctx, time.Millisecond)
		close(done)
	}()

	// Wait for the first full cycle to complete.
	deadline := time.After(5 * time.Second)
	for len(sim.CallsNamed("DearmTda")) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the first monitor cycle")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
	queue.Close()

	arms := sim.CallsNamed("ArmTda")
	if len(arms) < 2 {
		t.Fatalf("recorded %d arm attempts, want at least 2", len(arms))
	}
	if arms[0].Arm.CaptureDirectory != arms[1].Arm.CaptureDirectory {
		t.Errorf("retry changed the capture directory: %s vs %s",
			arms[0].Arm.CaptureDirectory, arms[1].Arm.CaptureDirectory)
	}

	// No framing before the successful arm.
	names := sim.CallNames()
	firstStart := -1
	secondArm := -1
	armSeen := 0
	for i, name := range names {
		if name == "ArmTda" {
			armSeen++
			if armSeen == 2 {
				secondArm = i
			}
		}
		if name == "StartFrame" && firstStart < 0 {
			firstStart = i
		}
	}
	if firstStart < secondArm {
		t.Errorf("framing started at call %d, before the successful arm at %d", firstStart, secondArm)
	}
}

// Cancellation stops the monitor loop at a transition boundary.
func TestMonitorStopsOnCancel(t *testing.T) {
	sim := mmwlink.NewSim()
	ctrl, queue := testController(t, sim)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		ctrl.Monitor(ctx, time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}
