package main

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// The exported document carries one entry per cascade device with the
// physical-unit conversions applied and the cascading roles assigned.
func TestBuildExportDoc(t *testing.T) {
	cfg := defaultConfig()
	doc := buildExportDoc(&cfg, mmwlink.NumDevices)

	if len(doc.MMWaveDevices) != mmwlink.NumDevices {
		t.Fatalf("exported %d devices, want %d", len(doc.MMWaveDevices), mmwlink.NumDevices)
	}

	for devID, dev := range doc.MMWaveDevices {
		if dev.MMWaveDeviceID != devID {
			t.Errorf("device %d: id = %d", devID, dev.MMWaveDeviceID)
		}
		wantRole := 2
		if devID == 0 {
			wantRole = 1
		}
		if dev.RFConfig.ChanCfg.Cascading != wantRole {
			t.Errorf("device %d: cascading = %d, want %d", devID, dev.RFConfig.ChanCfg.Cascading, wantRole)
		}
		if dev.RFConfig.FrameCfg.TriggerSelect != wantRole {
			t.Errorf("device %d: triggerSelect = %d, want %d", devID, dev.RFConfig.FrameCfg.TriggerSelect, wantRole)
		}
		if len(dev.RFConfig.Chirps) != NumChirps {
			t.Errorf("device %d: %d chirps, want %d", devID, len(dev.RFConfig.Chirps), NumChirps)
		}
	}

	prof := doc.MMWaveDevices[0].RFConfig.Profiles[0].ProfileCfg
	// 1434000000 LSB x 53.6441803 Hz = 76.926 GHz.
	if math.Abs(prof.StartFreqConstGHz-76.926) > 0.01 {
		t.Errorf("startFreqConst_GHz = %f, want ~76.926", prof.StartFreqConstGHz)
	}
	// 518 LSB x 48.2797623 kHz/us = 25.009 MHz/us.
	if math.Abs(prof.FreqSlopeConstMHzUsec-25.009) > 0.01 {
		t.Errorf("freqSlopeConst_MHz_usec = %f, conversion mismatch", prof.FreqSlopeConstMHzUsec)
	}
	// 700 LSB x 10 ns = 7 us.
	if math.Abs(prof.IdleTimeConstUsec-7.0) > 1e-9 {
		t.Errorf("idleTimeConst_usec = %f, want 7", prof.IdleTimeConstUsec)
	}

	frame := doc.MMWaveDevices[0].RFConfig.FrameCfg
	// 20000000 LSB x 5 ns = 100 ms.
	if math.Abs(frame.FramePeriodicityMsec-100.0) > 1e-9 {
		t.Errorf("framePeriodicity_msec = %f, want 100", frame.FramePeriodicityMsec)
	}

	clk := doc.MMWaveDevices[0].RawDataCaptureConfig.DataPathClkCfg
	if clk.DataRateMbps != 600 {
		t.Errorf("dataRate_Mbps = %d, want 600 for rate code 1", clk.DataRateMbps)
	}
}

// The written file is valid JSON with bitmasks rendered as hex strings.
func TestExportConfigFile(t *testing.T) {
	cfg := defaultConfig()
	filename := filepath.Join(t.TempDir(), "capture.mmwave.json")

	if err := exportConfig(&cfg, filename, mmwlink.NumDevices); err != nil {
		t.Fatalf("exportConfig: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	devices, ok := doc["mmWaveDevices"].([]any)
	if !ok || len(devices) != mmwlink.NumDevices {
		t.Fatalf("mmWaveDevices missing or wrong length")
	}
	rf := devices[0].(map[string]any)["rfConfig"].(map[string]any)
	chanCfg := rf["rlChanCfg_t"].(map[string]any)
	if got := chanCfg["rxChannelEn"]; got != "0xF" {
		t.Errorf("rxChannelEn rendered as %v, want hex string \"0xF\"", got)
	}

	// Slot 11 belongs to device 0 antenna 0, slot 0 is silent there.
	chirps := rf["rlChirps"].([]any)
	last := chirps[11].(map[string]any)["rlChirpCfg_t"].(map[string]any)
	if got := last["txEnable"]; got != "0x1" {
		t.Errorf("device 0 slot 11 txEnable = %v, want \"0x1\"", got)
	}
	first := chirps[0].(map[string]any)["rlChirpCfg_t"].(map[string]any)
	if got := first["txEnable"]; got != "0x0" {
		t.Errorf("device 0 slot 0 txEnable = %v, want \"0x0\"", got)
	}
}

func TestExportSetupFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "capture.setup.json")
	if err := exportSetup("192.168.33.180", "MMWL_Capture_1", filename); err != nil {
		t.Fatalf("exportSetup: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("reading setup export: %v", err)
	}
	var doc setupDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("setup export is not valid JSON: %v", err)
	}
	if doc.BoardIP != "192.168.33.180" {
		t.Errorf("board IP = %s", doc.BoardIP)
	}
	if doc.CaptureDirectory != "MMWL_Capture_1" {
		t.Errorf("capture directory = %s", doc.CaptureDirectory)
	}
}
