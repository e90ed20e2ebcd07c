// Package mmwlink defines the control surface of the mmwave radar link
// library used to drive an MMWCAS-RF-EVM cascade (one AWR2243 master plus
// up to three slaves behind a TDA capture board).
//
// Every call returns the raw integer status of the underlying link
// transaction, 0 meaning success. The statuses are summed by the caller's
// checkpoint logic, so they are deliberately not converted to Go errors
// at this boundary.
package mmwlink

// DevMap is a bitmask over the four cascade devices. Bit 0 is the master,
// bits 1-3 are the slaves. Device IDs 0..3 double as bit positions and as
// chirp scheduler indices.
type DevMap uint8

const (
	DevMaster DevMap = 1 << 0
	DevSlave1 DevMap = 1 << 1
	DevSlave2 DevMap = 1 << 2
	DevSlave3 DevMap = 1 << 3

	// DevMapAll enables the full 4-chip cascade.
	DevMapAll = DevMaster | DevSlave1 | DevSlave2 | DevSlave3
)

// NumDevices is the size of the cascade the scheduler and exporter assume.
const NumDevices = 4

// FromID returns the single-device mask for a device ID 0..3.
func FromID(devID int) DevMap {
	return DevMap(1) << devID
}

// AssignDeviceMap splits a device map into its master-only and
// slaves-only sub-masks.
func AssignDeviceMap(m DevMap) (master, slaves DevMap) {
	return m & DevMaster, m &^ DevMaster
}

// Cascading roles carried in the channel config.
const (
	CascadingMaster uint8 = 1
	CascadingSlave  uint8 = 2
)

// ProfileCfg holds the chirp timing profile in raw register units.
// LSB scales: startFreq 53.6441803 Hz, freqSlope 48.2797623 kHz/us,
// timings 10 ns, sample rate 1 ksps.
type ProfileCfg struct {
	ProfileID             uint16
	PfVcoSelect           uint8
	StartFreqConst        uint32
	FreqSlopeConst        int16
	IdleTimeConst         uint32
	AdcStartTimeConst     uint32
	RampEndTime           uint32
	TxOutPowerBackoffCode uint32
	TxPhaseShifter        uint32
	TxStartTime           int32
	NumAdcSamples         uint16
	DigOutSampleRate      uint16
	HpfCornerFreq1        uint8
	HpfCornerFreq2        uint8
	RxGain                uint16
}

// FrameCfg describes the frame envelope. NumFrames 0 means unbounded.
// FramePeriodicity LSB is 5 ns.
type FrameCfg struct {
	ChirpStartIdx     uint16
	ChirpEndIdx       uint16
	NumLoops          uint16
	NumFrames         uint16
	NumAdcSamples     uint16
	FrameTriggerDelay uint32
	FramePeriodicity  uint32
}

// ChirpCfg configures one chirp slot. TxEnable is a one-hot mask over the
// three TX antennas, or 0 for a silent slot.
type ChirpCfg struct {
	ChirpStartIdx   uint16
	ChirpEndIdx     uint16
	ProfileID       uint16
	TxEnable        uint16
	AdcStartTimeVar uint32
	IdleTimeVar     uint32
	StartFreqVar    uint32
	FreqSlopeVar    int8
}

// ChanCfg enables RX/TX channels and carries the cascading role.
type ChanCfg struct {
	RxChannelEn uint16
	TxChannelEn uint16
	Cascading   uint8
}

// AdcOutCfg selects ADC bit depth and output format.
type AdcOutCfg struct {
	AdcBits            uint8 // 0: 12-bit, 1: 14-bit, 2: 16-bit
	AdcOutFmt          uint8 // 0: real, 1: complex
	FullScaleReducFctr uint8
}

// DataFmtCfg mirrors the device data format block. RxChannelEn, AdcBits
// and AdcFmt are overwritten from ChanCfg/AdcOutCfg before use so the
// two records cannot diverge.
type DataFmtCfg struct {
	RxChannelEn  uint16
	AdcBits      uint8
	AdcFmt       uint8
	IqSwapSel    uint8
	ChInterleave uint8
}

// LdoCfg controls the RF/PA LDO bypass.
type LdoCfg struct {
	LdoBypassEnable   uint8
	SupplyMonIrDrop   uint8
	IoSupplyIndicator uint8
}

// LowPowerCfg selects the ADC power mode.
type LowPowerCfg struct {
	LpAdcMode uint8
}

// MiscCfg carries the miscellaneous RF control flags.
type MiscCfg struct {
	MiscCtl uint32
}

// DataPathCfg selects the high-speed data interface and packet layout.
type DataPathCfg struct {
	IntfSel         uint8
	TransferFmtPkt0 uint8
	TransferFmtPkt1 uint8
}

// DataPathClkCfg configures the lane clock. DataRate 1 means 600 Mbps.
type DataPathClkCfg struct {
	LaneClkCfg uint8
	DataRate   uint8
}

// HsiClkCfg sets the high-speed interface clock code.
type HsiClkCfg struct {
	HsiClk uint16
}

// Csi2Cfg configures the CSI2 lane positions and polarity.
type Csi2Cfg struct {
	LineStartEndDis uint8
	LanePosPolSel   uint32
}

// TdaArmCfg is the capture appliance arming descriptor.
type TdaArmCfg struct {
	CaptureDirectory        string
	FramePeriodicityMs      uint32
	NumberOfFilesToAllocate uint32
	NumberOfFramesToCapture uint32
	DataPacking             uint8 // 0: 16-bit, 1: 12-bit
}

// Driver is the radar link control surface consumed by the cascade
// bring-up sequencer and the capture controller. Implementations talk to
// the physical board; Sim is the in-process stand-in used for tests and
// dry runs.
type Driver interface {
	DevicePowerUp(m DevMap, pollTimeoutMs, ackTimeoutMs int) int
	FirmwareDownload(m DevMap) int
	SetDeviceCrcType(m DevMap) int
	RfEnable(m DevMap) int
	ChannelConfig(m DevMap, cascading uint8, cfg ChanCfg) int
	AdcOutConfig(m DevMap, cfg AdcOutCfg) int

	RfDeviceConfig(m DevMap) int
	LdoBypassConfig(m DevMap, cfg LdoCfg) int
	DataFmtConfig(m DevMap, cfg DataFmtCfg) int
	LowPowerConfig(m DevMap, cfg LowPowerCfg) int
	ApllSynthBwConfig(m DevMap) int
	SetMiscConfig(m DevMap, cfg MiscCfg) int
	RfInit(m DevMap) int
	DataPathConfig(m DevMap, cfg DataPathCfg) int
	HsiClockConfig(m DevMap, clkCfg DataPathClkCfg, hsiCfg HsiClkCfg) int
	Csi2LaneConfig(m DevMap, cfg Csi2Cfg) int
	ProfileConfig(m DevMap, cfg ProfileCfg) int
	ChirpConfig(m DevMap, cfg ChirpCfg) int
	FrameConfig(m DevMap, frameCfg FrameCfg, chanCfg ChanCfg, adcCfg AdcOutCfg, pathCfg DataPathCfg, profCfg ProfileCfg) int

	TdaInit(ipAddr string, port int, m DevMap) int
	ArmTda(cfg TdaArmCfg) int
	StartFrame(m DevMap) int
	StopFrame(m DevMap) int
	DearmTda() int
}
