package main

import (
	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// initMaster powers up and configures the master chip. Every stage is a
// required checkpoint: a failure exits the process with the accumulated
// status before any later stage runs.
func initMaster(drv mmwlink.Driver, rep *Reporter, chanCfg mmwlink.ChanCfg, adcCfg mmwlink.AdcOutCfg) int {
	masterMap := mmwlink.DevMaster
	status := 0

	chanCfg.Cascading = mmwlink.CascadingMaster

	status += drv.DevicePowerUp(masterMap, 1000, 1000)
	rep.Check(status,
		"[MASTER] Power up successful!",
		"[MASTER] Error: Failed to power up device!", masterMap, true)

	status += drv.FirmwareDownload(masterMap)
	rep.Check(status,
		"[MASTER] Firmware successfully uploaded!",
		"[MASTER] Error: Firmware upload failed!", masterMap, true)

	status += drv.SetDeviceCrcType(masterMap)
	rep.Check(status,
		"[MASTER] CRC type has been set!",
		"[MASTER] Error: Unable to set CRC type!", masterMap, true)

	status += drv.RfEnable(masterMap)
	rep.Check(status,
		"[MASTER] RF successfully enabled!",
		"[MASTER] Error: Failed to enable master RF!", masterMap, true)

	status += drv.ChannelConfig(masterMap, chanCfg.Cascading, chanCfg)
	rep.Check(status,
		"[MASTER] Channels successfully configured!",
		"[MASTER] Error: Channels configuration failed!", masterMap, true)

	status += drv.AdcOutConfig(masterMap, adcCfg)
	rep.Check(status,
		"[MASTER] ADC output format successfully configured!",
		"[MASTER] Error: ADC output format configuration failed!", masterMap, true)

	rep.Check(status,
		"[MASTER] Init completed with success",
		"[MASTER] Init completed with error", masterMap, true)
	return status
}

// initSlaves powers up the slave chips one at a time (the power sequencing
// has an ordering dependency), then configures them as a group against the
// combined slave map.
func initSlaves(drv mmwlink.Driver, rep *Reporter, slavesMap mmwlink.DevMap, chanCfg mmwlink.ChanCfg, adcCfg mmwlink.AdcOutCfg) int {
	status := 0

	chanCfg.Cascading = mmwlink.CascadingSlave

	for slaveID := 1; slaveID < mmwlink.NumDevices; slaveID++ {
		slaveMap := mmwlink.FromID(slaveID)
		if slavesMap&slaveMap == 0 {
			continue
		}
		status += drv.DevicePowerUp(slaveMap, 1000, 1000)
		rep.Check(status,
			"[SLAVE] Power up successful!",
			"[SLAVE] Error: Failed to power up device!", slaveMap, true)
	}

	status += drv.FirmwareDownload(slavesMap)
	rep.Check(status,
		"[SLAVE] Firmware successfully uploaded!",
		"[SLAVE] Error: Firmware upload failed!", slavesMap, true)

	status += drv.SetDeviceCrcType(slavesMap)
	rep.Check(status,
		"[SLAVE] CRC type has been set!",
		"[SLAVE] Error: Unable to set CRC type!", slavesMap, true)

	status += drv.RfEnable(slavesMap)
	rep.Check(status,
		"[SLAVE] RF successfully enabled!",
		"[SLAVE] Error: Failed to enable slave RF!", slavesMap, true)

	status += drv.ChannelConfig(slavesMap, chanCfg.Cascading, chanCfg)
	rep.Check(status,
		"[SLAVE] Channels successfully configured!",
		"[SLAVE] Error: Channels configuration failed!", slavesMap, true)

	status += drv.AdcOutConfig(slavesMap, adcCfg)
	rep.Check(status,
		"[SLAVE] ADC output format successfully configured!",
		"[SLAVE] Error: ADC output format configuration failed!", slavesMap, true)

	rep.Check(status,
		"[SLAVE] Init completed with success",
		"[SLAVE] Init completed with error", slavesMap, true)
	return status
}

// configureCascade runs the full bring-up sequence: master, slaves, then
// the array-wide stages in their fixed order (profile and data path depend
// on RF init and clock config having taken effect), the TDM chirp schedule
// per device, and finally the frame config scoped to the master map and to
// the combined slave map.
func configureCascade(drv mmwlink.Driver, rep *Reporter, cfg *DevConfig) int {
	applyAdcFmt(cfg)

	status := 0
	status += initMaster(drv, rep, cfg.Channel, cfg.AdcOut)
	status += initSlaves(drv, rep, cfg.SlavesMap, cfg.Channel, cfg.AdcOut)

	status += drv.RfDeviceConfig(cfg.DeviceMap)
	rep.Check(status,
		"[ALL] RF device configured!",
		"[ALL] RF device configuration failed!", cfg.DeviceMap, true)

	status += drv.LdoBypassConfig(cfg.DeviceMap, cfg.Ldo)
	rep.Check(status,
		"[ALL] LDO Bypass configuration successful!",
		"[ALL] LDO Bypass configuration failed!", cfg.DeviceMap, true)

	status += drv.DataFmtConfig(cfg.DeviceMap, cfg.DataFmt)
	rep.Check(status,
		"[ALL] Data format configuration successful!",
		"[ALL] Data format configuration failed!", cfg.DeviceMap, true)

	status += drv.LowPowerConfig(cfg.DeviceMap, cfg.LowPower)
	rep.Check(status,
		"[ALL] Low Power Mode configuration successful!",
		"[ALL] Low Power Mode configuration failed!", cfg.DeviceMap, true)

	status += drv.ApllSynthBwConfig(cfg.DeviceMap)
	status += drv.SetMiscConfig(cfg.DeviceMap, cfg.Misc)
	status += drv.RfInit(cfg.DeviceMap)
	rep.Check(status,
		"[ALL] RF successfully initialized!",
		"[ALL] RF init failed!", cfg.DeviceMap, true)

	status += drv.DataPathConfig(cfg.DeviceMap, cfg.DataPath)
	status += drv.HsiClockConfig(cfg.DeviceMap, cfg.DataPathClk, cfg.HsiClk)
	status += drv.Csi2LaneConfig(cfg.DeviceMap, cfg.Csi2)
	rep.Check(status,
		"[ALL] Datapath configuration successful!",
		"[ALL] Datapath configuration failed!", cfg.DeviceMap, true)

	status += drv.ProfileConfig(cfg.DeviceMap, cfg.Profile)
	rep.Check(status,
		"[ALL] Profile configuration successful!",
		"[ALL] Profile configuration failed!", cfg.DeviceMap, true)

	for devID := 0; devID < mmwlink.NumDevices; devID++ {
		status += configureChirps(drv, devID, cfg.Chirp)
	}
	rep.Check(status,
		"[ALL] Chirp configuration successful!",
		"[ALL] Chirp configuration failed!", cfg.DeviceMap, true)

	status += drv.FrameConfig(cfg.MasterMap, cfg.Frame, cfg.Channel, cfg.AdcOut, cfg.DataPath, cfg.Profile)
	rep.Check(status,
		"[MASTER] Frame configuration completed!",
		"[MASTER] Frame configuration failed!", cfg.MasterMap, true)

	status += drv.FrameConfig(cfg.SlavesMap, cfg.Frame, cfg.Channel, cfg.AdcOut, cfg.DataPath, cfg.Profile)
	rep.Check(status,
		"[SLAVE] Frame configuration completed!",
		"[SLAVE] Frame configuration failed!", cfg.SlavesMap, true)

	rep.Check(status,
		"[MIMO] Configuration completed!",
		"[MIMO] Configuration completed with error!", cfg.DeviceMap, true)
	return status
}
