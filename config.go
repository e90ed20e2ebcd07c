package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// Register LSB scale factors shared by the config loader and the exporter.
const (
	startFreqLSBHz   = 53.6441803 // Hz per startFreqConst LSB
	freqSlopeLSBKHz  = 48.2797623 // kHz/us per freqSlopeConst LSB
	timeLSBUs        = 0.01       // us per 10ns timing LSB
	framePerLSBNs    = 5.0        // ns per framePeriodicity LSB
	usPerTimeLSB     = 100        // 10ns LSBs per microsecond
	framePerLSBPerMs = 200000     // framePeriodicity LSBs per millisecond
)

// DevConfig is the aggregate device configuration shared by all chips in
// the cascade, plus the device map describing which chips are populated.
type DevConfig struct {
	DeviceMap mmwlink.DevMap
	MasterMap mmwlink.DevMap
	SlavesMap mmwlink.DevMap

	Profile     mmwlink.ProfileCfg
	Frame       mmwlink.FrameCfg
	Chirp       mmwlink.ChirpCfg
	Channel     mmwlink.ChanCfg
	AdcOut      mmwlink.AdcOutCfg
	DataFmt     mmwlink.DataFmtCfg
	Ldo         mmwlink.LdoCfg
	LowPower    mmwlink.LowPowerCfg
	Misc        mmwlink.MiscCfg
	DataPath    mmwlink.DataPathCfg
	DataPathClk mmwlink.DataPathClkCfg
	HsiClk      mmwlink.HsiClkCfg
	Csi2        mmwlink.Csi2Cfg
}

// defaultConfig returns the MIMO setup for the full 4-chip cascade:
// ~77GHz start, 15 MHz/us slope, 512 complex 16-bit samples per chirp,
// 100ms frames, all RX and TX channels enabled.
func defaultConfig() DevConfig {
	cfg := DevConfig{
		DeviceMap: mmwlink.DevMapAll,
		Profile: mmwlink.ProfileCfg{
			ProfileID:         0,
			PfVcoSelect:       0x02,
			StartFreqConst:    1434000000, // 77GHz
			FreqSlopeConst:    518,        // 15.0148 MHz/us
			IdleTimeConst:     700,        // 7us
			AdcStartTimeConst: 435,        // 4.35us
			RampEndTime:       6897,       // ~69us
			NumAdcSamples:     512,
			DigOutSampleRate:  8000, // 8 Msps
			RxGain:            48,
		},
		Frame: mmwlink.FrameCfg{
			ChirpStartIdx:    0,
			ChirpEndIdx:      11,
			NumFrames:        0, // infinite
			NumLoops:         10,
			NumAdcSamples:    2 * 256, // complex samples, I and Q
			FramePeriodicity: 20000000, // 100ms
		},
		Chirp: mmwlink.ChirpCfg{
			ProfileID: 0,
			TxEnable:  0x00,
		},
		Channel: mmwlink.ChanCfg{
			RxChannelEn: 0x0F,
			TxChannelEn: 0x07,
			Cascading:   mmwlink.CascadingSlave,
		},
		AdcOut: mmwlink.AdcOutCfg{
			AdcBits:   2, // 16-bit
			AdcOutFmt: 1, // complex
		},
		DataFmt: mmwlink.DataFmtCfg{
			IqSwapSel:    0,
			ChInterleave: 0,
			RxChannelEn:  0xF,
			AdcFmt:       1,
			AdcBits:      2,
		},
		Ldo: mmwlink.LdoCfg{
			LdoBypassEnable: 3, // RF and PA LDO disabled
		},
		LowPower: mmwlink.LowPowerCfg{
			LpAdcMode: 0,
		},
		Misc: mmwlink.MiscCfg{
			MiscCtl: 1, // per-chirp phase shifter
		},
		DataPath: mmwlink.DataPathCfg{
			IntfSel:         0, // CSI2
			TransferFmtPkt0: 1, // ADC data only
			TransferFmtPkt1: 0,
		},
		DataPathClk: mmwlink.DataPathClkCfg{
			LaneClkCfg: 1, // DDR
			DataRate:   1, // 600Mbps
		},
		HsiClk: mmwlink.HsiClkCfg{
			HsiClk: 0x09,
		},
		Csi2: mmwlink.Csi2Cfg{
			LineStartEndDis: 0,
			LanePosPolSel:   0x35421,
		},
	}
	cfg.MasterMap, cfg.SlavesMap = mmwlink.AssignDeviceMap(cfg.DeviceMap)
	return cfg
}

// loadConfigFile overlays values from a TOML file onto cfg. Keys are in
// physical units ([mimo.profile] in GHz/MHz/us, [mimo.frame] in ms) and
// are converted to register LSBs here; absent keys keep their defaults.
func loadConfigFile(path string, cfg *DevConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	p := &cfg.Profile
	if v.IsSet("mimo.profile.id") {
		p.ProfileID = uint16(v.GetInt("mimo.profile.id"))
	}
	if v.IsSet("mimo.profile.startFrequency") {
		p.StartFreqConst = uint32(v.GetFloat64("mimo.profile.startFrequency") * 1e9 / startFreqLSBHz)
	}
	if v.IsSet("mimo.profile.frequencySlope") {
		p.FreqSlopeConst = int16(v.GetFloat64("mimo.profile.frequencySlope") * 1000 / freqSlopeLSBKHz)
	}
	if v.IsSet("mimo.profile.idleTime") {
		p.IdleTimeConst = uint32(v.GetFloat64("mimo.profile.idleTime") * usPerTimeLSB)
	}
	if v.IsSet("mimo.profile.adcStartTime") {
		p.AdcStartTimeConst = uint32(v.GetFloat64("mimo.profile.adcStartTime") * usPerTimeLSB)
	}
	if v.IsSet("mimo.profile.rampEndTime") {
		p.RampEndTime = uint32(v.GetFloat64("mimo.profile.rampEndTime") * usPerTimeLSB)
	}
	if v.IsSet("mimo.profile.numAdcSamples") {
		p.NumAdcSamples = uint16(v.GetInt("mimo.profile.numAdcSamples"))
	}
	if v.IsSet("mimo.profile.adcSamplingFrequency") {
		p.DigOutSampleRate = uint16(v.GetInt("mimo.profile.adcSamplingFrequency"))
	}
	if v.IsSet("mimo.profile.rxGain") {
		p.RxGain = uint16(v.GetInt("mimo.profile.rxGain"))
	}

	f := &cfg.Frame
	if v.IsSet("mimo.frame.numFrames") {
		f.NumFrames = uint16(v.GetInt("mimo.frame.numFrames"))
	}
	if v.IsSet("mimo.frame.numLoops") {
		f.NumLoops = uint16(v.GetInt("mimo.frame.numLoops"))
	}
	if v.IsSet("mimo.frame.framePeriodicity") {
		f.FramePeriodicity = uint32(v.GetFloat64("mimo.frame.framePeriodicity") * framePerLSBPerMs)
	}

	c := &cfg.Channel
	if v.IsSet("mimo.channel.rxChannelEn") {
		c.RxChannelEn = uint16(v.GetInt("mimo.channel.rxChannelEn"))
	}
	if v.IsSet("mimo.channel.txChannelEn") {
		c.TxChannelEn = uint16(v.GetInt("mimo.channel.txChannelEn"))
	}

	return nil
}

// applyAdcFmt copies the channel enable and ADC format fields into the
// data format record. The two records are independently settable on the
// wire but must agree, so the channel/ADC records are the source of truth.
func applyAdcFmt(cfg *DevConfig) {
	cfg.DataFmt.RxChannelEn = cfg.Channel.RxChannelEn
	cfg.DataFmt.AdcBits = cfg.AdcOut.AdcBits
	cfg.DataFmt.AdcFmt = cfg.AdcOut.AdcOutFmt
}
