package main

import (
	"log"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// NumChirps is the length of the TDM chirp slot table: 3 TX antennas
// across 4 devices, one antenna transmitting per slot.
const NumChirps = 12

// chirpSlots reserves three slots per device, swept from slot 11 down to
// slot 0 in device order. The position of a slot within a device's row
// selects the antenna: position p maps to TX antenna p.
//
//	dev 0 (master): slots 11, 10, 9
//	dev 1:          slots  8,  7, 6
//	dev 2:          slots  5,  4, 3
//	dev 3:          slots  2,  1, 0
var chirpSlots = [mmwlink.NumDevices][3]uint16{
	{11, 10, 9},
	{8, 7, 6},
	{5, 4, 3},
	{2, 1, 0},
}

// txEnable returns the one-hot TX antenna mask device devID transmits in
// chirp slot, or 0 if the slot belongs to another device. Both the
// hardware configuration path and the JSON exporter derive their masks
// from this one function so the two can never disagree.
func txEnable(devID int, slot uint16) uint16 {
	for p, s := range chirpSlots[devID] {
		if s == slot {
			return 1 << p
		}
	}
	return 0
}

// configureChirps programs all 12 chirp slots of one device from the
// shared chirp template. The first failing slot aborts the remaining
// slots for that device; the accumulated status is returned either way.
func configureChirps(drv mmwlink.Driver, devID int, chirpCfg mmwlink.ChirpCfg) int {
	status := 0
	for i := uint16(0); i < NumChirps; i++ {
		chirpCfg.ChirpStartIdx = i
		chirpCfg.ChirpEndIdx = i
		chirpCfg.TxEnable = txEnable(devID, i)
		status += drv.ChirpConfig(mmwlink.FromID(devID), chirpCfg)
		if status != 0 {
			log.Printf("[CHIRP CONFIG] dev %d, chirp idx %d failed, status: %d", devID, i, status)
			break
		}
	}
	return status
}
