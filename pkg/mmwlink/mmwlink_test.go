package mmwlink

import "testing"

func TestAssignDeviceMap(t *testing.T) {
	cases := []struct {
		in             DevMap
		master, slaves DevMap
	}{
		{0b1111, 0b0001, 0b1110},
		{0b0001, 0b0001, 0b0000},
		{0b0111, 0b0001, 0b0110},
		{0b1110, 0b0000, 0b1110},
	}
	for _, c := range cases {
		master, slaves := AssignDeviceMap(c.in)
		if master != c.master || slaves != c.slaves {
			t.Errorf("AssignDeviceMap(%#b) = (%#b, %#b), want (%#b, %#b)",
				c.in, master, slaves, c.master, c.slaves)
		}
	}
}

func TestFromID(t *testing.T) {
	for id := 0; id < NumDevices; id++ {
		if got := FromID(id); got != DevMap(1)<<id {
			t.Errorf("FromID(%d) = %#b", id, got)
		}
	}
}

// Scripted statuses are consumed one per call and in order; unscripted
// calls return 0.
func TestSimScriptedStatuses(t *testing.T) {
	sim := NewSim()
	sim.FailNext("RfEnable", 3, 0, 5)

	got := []int{
		sim.RfEnable(DevMaster),
		sim.RfEnable(DevMaster),
		sim.RfEnable(DevMaster),
		sim.RfEnable(DevMaster),
		sim.FirmwareDownload(DevMaster),
	}
	want := []int{3, 0, 5, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d returned %d, want %d", i, got[i], want[i])
		}
	}

	names := sim.CallNames()
	if len(names) != 5 || names[4] != "FirmwareDownload" {
		t.Errorf("call log = %v", names)
	}
}
