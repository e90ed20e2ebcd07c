package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Hex renders a register bitmask as a hex string in the exported JSON,
// e.g. 0x35421 -> "0x35421".
type Hex uint32

func (h Hex) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", fmt.Sprintf("0x%X", uint32(h)))), nil
}

type versionJSON struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

type mmwaveDoc struct {
	ConfigGenerator struct {
		CreatedBy            string `json:"createdBy"`
		CreatedOn            string `json:"createdOn"`
		IsConfigIntermediate int    `json:"isConfigIntermediate"`
	} `json:"configGenerator"`
	CurrentVersion struct {
		JSONCfgVersion    versionJSON `json:"jsonCfgVersion"`
		DFPVersion        versionJSON `json:"DFPVersion"`
		SDKVersion        versionJSON `json:"SDKVersion"`
		MmwavelinkVersion versionJSON `json:"mmwavelinkVersion"`
	} `json:"currentVersion"`
	LastBackwardCompatibleVersion struct {
		DFPVersion        versionJSON `json:"DFPVersion"`
		SDKVersion        versionJSON `json:"SDKVersion"`
		MmwavelinkVersion versionJSON `json:"mmwavelinkVersion"`
	} `json:"lastBackwardCompatibleVersion"`
	RegulatoryRestrictions struct {
		FrequencyRangeBeginGHz      float64 `json:"frequencyRangeBegin_GHz"`
		FrequencyRangeEndGHz        float64 `json:"frequencyRangeEnd_GHz"`
		MaxBandwidthAllowedMHz      float64 `json:"maxBandwidthAllowed_MHz"`
		MaxTransmitPowerAllowedDBm  float64 `json:"maxTransmitPowerAllowed_dBm"`
	} `json:"regulatoryRestrictions"`
	SystemConfig struct {
		Summary         string `json:"summary"`
		SceneParameters struct {
			AmbientTemperatureDegC   float64 `json:"ambientTemperature_degC"`
			MaxDetectableRangeM      float64 `json:"maxDetectableRange_m"`
			RangeResolutionCm        float64 `json:"rangeResolution_cm"`
			MaxVelocityKmph          float64 `json:"maxVelocity_kmph"`
			VelocityResolutionKmph   float64 `json:"velocityResolution_kmph"`
			MeasurementRate          float64 `json:"measurementRate"`
			TypicalDetectedObjectRCS float64 `json:"typicalDetectedObjectRCS"`
		} `json:"sceneParameters"`
	} `json:"systemConfig"`
	MMWaveDevices         []mmwaveDevice `json:"mmWaveDevices"`
	ProcessingChainConfig struct {
		DetectionChain struct {
			Name                      string `json:"name"`
			DetectionLoss             int    `json:"detectionLoss"`
			SystemLoss                int    `json:"systemLoss"`
			ImplementationMargin      int    `json:"implementationMargin"`
			DetectionSNR              int    `json:"detectionSNR"`
			TheoreticalRxAntennaGain  int    `json:"theoreticalRxAntennaGain"`
			TheoreticalTxAntennaGain  int    `json:"theoreticalTxAntennaGain"`
		} `json:"detectionChain"`
	} `json:"processingChainConfig"`
}

type mmwaveDevice struct {
	MMWaveDeviceID       int                  `json:"mmWaveDeviceId"`
	RFConfig             rfConfigJSON         `json:"rfConfig"`
	RawDataCaptureConfig rawDataCaptureJSON   `json:"rawDataCaptureConfig"`
	MonitoringConfig     struct{}             `json:"monitoringConfig"`
}

type rfConfigJSON struct {
	WaveformType          string          `json:"waveformType"`
	MIMOScheme            string          `json:"MIMOScheme"`
	RlCalibrationDataFile string          `json:"rlCalibrationDataFile"`
	ChanCfg               chanCfgJSON     `json:"rlChanCfg_t"`
	AdcOutCfg             adcOutJSON      `json:"rlAdcOutCfg_t"`
	LowPowerModeCfg       lpmJSON         `json:"rlLowPowerModeCfg_t"`
	Profiles              []profileEntry  `json:"rlProfiles"`
	Chirps                []chirpEntry    `json:"rlChirps"`
	RfInitCalConf         rfInitCalJSON   `json:"rlRfInitCalConf_t"`
	FrameCfg              frameCfgJSON    `json:"rlFrameCfg_t"`
	BpmChirps             []struct{}      `json:"rlBpmChirps"`
	MiscConf              miscJSON        `json:"rlRfMiscConf_t"`
	PhaseShiftCfgs        []struct{}      `json:"rlRfPhaseShiftCfgs"`
	ProgFiltConfs         []struct{}      `json:"rlRfProgFiltConfs"`
	TestSource            testSourceJSON  `json:"rlTestSource_t"`
	LdoBypassCfg          ldoJSON         `json:"rlRfLdoBypassCfg_t"`
	LoopbackBursts        []struct{}      `json:"rlLoopbackBursts"`
	DynChirpCfgs          []struct{}      `json:"rlDynChirpCfgs"`
	DynPerChirpPhShftCfgs []struct{}      `json:"rlDynPerChirpPhShftCfgs"`
}

type chanCfgJSON struct {
	RxChannelEn        Hex `json:"rxChannelEn"`
	TxChannelEn        Hex `json:"txChannelEn"`
	Cascading          int `json:"cascading"`
	CascadingPinoutCfg Hex `json:"cascadingPinoutCfg"`
}

type adcOutJSON struct {
	Fmt struct {
		B2AdcBits           int `json:"b2AdcBits"`
		B8FullScaleReducFctr int `json:"b8FullScaleReducFctr"`
		B2AdcOutFmt         int `json:"b2AdcOutFmt"`
	} `json:"fmt"`
}

type lpmJSON struct {
	LpAdcMode int `json:"lpAdcMode"`
}

type profileEntry struct {
	ProfileCfg profileCfgJSON `json:"rlProfileCfg_t"`
}

type profileCfgJSON struct {
	ProfileID             int     `json:"profileId"`
	PfVcoSelect           Hex     `json:"pfVcoSelect"`
	PfCalLutUpdate        Hex     `json:"pfCalLutUpdate"`
	StartFreqConstGHz     float64 `json:"startFreqConst_GHz"`
	IdleTimeConstUsec     float64 `json:"idleTimeConst_usec"`
	AdcStartTimeConstUsec float64 `json:"adcStartTimeConst_usec"`
	RampEndTimeUsec       float64 `json:"rampEndTime_usec"`
	TxOutPowerBackoffCode Hex     `json:"txOutPowerBackoffCode"`
	TxPhaseShifter        Hex     `json:"txPhaseShifter"`
	FreqSlopeConstMHzUsec float64 `json:"freqSlopeConst_MHz_usec"`
	TxStartTimeUsec       float64 `json:"txStartTime_usec"`
	NumAdcSamples         int     `json:"numAdcSamples"`
	DigOutSampleRate      float64 `json:"digOutSampleRate"`
	HpfCornerFreq1        int     `json:"hpfCornerFreq1"`
	HpfCornerFreq2        int     `json:"hpfCornerFreq2"`
	RxGainDB              Hex     `json:"rxGain_dB"`
}

type chirpEntry struct {
	ChirpCfg chirpCfgJSON `json:"rlChirpCfg_t"`
}

type chirpCfgJSON struct {
	ChirpStartIdx       int     `json:"chirpStartIdx"`
	ChirpEndIdx         int     `json:"chirpEndIdx"`
	ProfileID           int     `json:"profileId"`
	StartFreqVarMHz     float64 `json:"startFreqVar_MHz"`
	FreqSlopeVarKHzUsec float64 `json:"freqSlopeVar_KHz_usec"`
	IdleTimeVarUsec     float64 `json:"idleTimeVar_usec"`
	AdcStartTimeVarUsec float64 `json:"adcStartTimeVar_usec"`
	TxEnable            Hex     `json:"txEnable"`
}

type rfInitCalJSON struct {
	CalibEnMask Hex `json:"calibEnMask"`
}

type frameCfgJSON struct {
	ChirpEndIdx          int     `json:"chirpEndIdx"`
	ChirpStartIdx        int     `json:"chirpStartIdx"`
	NumLoops             int     `json:"numLoops"`
	NumFrames            int     `json:"numFrames"`
	FramePeriodicityMsec float64 `json:"framePeriodicity_msec"`
	TriggerSelect        int     `json:"triggerSelect"`
	FrameTriggerDelay    float64 `json:"frameTriggerDelay"`
}

type miscJSON struct {
	MiscCtl string `json:"miscCtl"`
}

type ldoJSON struct {
	LdoBypassEnable   int `json:"ldoBypassEnable"`
	SupplyMonIrDrop   int `json:"supplyMonIrDrop"`
	IoSupplyIndicator int `json:"ioSupplyIndicator"`
}

type testSourceJSON struct {
	Objects     []testSourceObjectEntry `json:"rlTestSourceObjects"`
	RxAntPos    []antPosEntry           `json:"rlTestSourceRxAntPos"`
	TxAntPos    []antPosEntry           `json:"rlTestSourceTxAntPos"`
	MiscFunCtrl int                     `json:"miscFunCtrl"`
}

type testSourceObjectEntry struct {
	Object testSourceObjectJSON `json:"rlTestSourceObject_t"`
}

type testSourceObjectJSON struct {
	PosXM     float64 `json:"posX_m"`
	PosYM     float64 `json:"posY_m"`
	PosZM     float64 `json:"posZ_m"`
	VelXMSec  float64 `json:"velX_m_sec"`
	VelYMSec  float64 `json:"velY_m_sec"`
	VelZMSec  float64 `json:"velZ_m_sec"`
	SigLvlDBFS float64 `json:"sigLvl_dBFS"`
	PosXMinM  float64 `json:"posXMin_m"`
	PosYMinM  float64 `json:"posYMin_m"`
	PosZMinM  float64 `json:"posZMin_m"`
	PosXMaxM  float64 `json:"posXMax_m"`
	PosYMaxM  float64 `json:"posYMax_m"`
	PosZMaxM  float64 `json:"posZMax_m"`
}

type antPosEntry struct {
	AntPos antPosJSON `json:"rlTestSourceAntPos_t"`
}

type antPosJSON struct {
	AntPosX float64 `json:"antPosX"`
	AntPosZ float64 `json:"antPosZ"`
}

type rawDataCaptureJSON struct {
	DataFmtCfg struct {
		IqSwapSel    int `json:"iqSwapSel"`
		ChInterleave int `json:"chInterleave"`
	} `json:"rlDevDataFmtCfg_t"`
	DataPathCfg struct {
		IntfSel         int `json:"intfSel"`
		TransferFmtPkt0 Hex `json:"transferFmtPkt0"`
		TransferFmtPkt1 Hex `json:"transferFmtPkt1"`
		CqConfig        int `json:"cqConfig"`
		Cq0TransSize    int `json:"cq0TransSize"`
		Cq1TransSize    int `json:"cq1TransSize"`
		Cq2TransSize    int `json:"cq2TransSize"`
	} `json:"rlDevDataPathCfg_t"`
	DataPathClkCfg struct {
		LaneClkCfg   int `json:"laneClkCfg"`
		DataRateMbps int `json:"dataRate_Mbps"`
	} `json:"rlDevDataPathClkCfg_t"`
	Csi2Cfg struct {
		LanePosPolSel   Hex `json:"lanePosPolSel"`
		LineStartEndDis int `json:"lineStartEndDis"`
	} `json:"rlDevCsi2Cfg_t"`
}

// buildExportDoc assembles the mmWave Studio compatible document for the
// given number of cascade devices, converting raw register units into
// physical units (GHz, us, ms) with the documented LSB scale factors.
func buildExportDoc(cfg *DevConfig, numDevices int) mmwaveDoc {
	var doc mmwaveDoc

	doc.ConfigGenerator.CreatedBy = progName
	doc.ConfigGenerator.CreatedOn = time.Now().Format("2006-01-02T15:04:05")
	doc.ConfigGenerator.IsConfigIntermediate = 1

	doc.CurrentVersion.JSONCfgVersion = versionJSON{0, 4, 0}
	doc.CurrentVersion.DFPVersion = versionJSON{2, 2, 0}
	doc.CurrentVersion.SDKVersion = versionJSON{3, 3, 0}
	doc.CurrentVersion.MmwavelinkVersion = versionJSON{2, 2, 0}
	doc.LastBackwardCompatibleVersion.DFPVersion = versionJSON{2, 1, 0}
	doc.LastBackwardCompatibleVersion.SDKVersion = versionJSON{3, 0, 0}
	doc.LastBackwardCompatibleVersion.MmwavelinkVersion = versionJSON{2, 1, 0}

	doc.RegulatoryRestrictions.FrequencyRangeBeginGHz = 77
	doc.RegulatoryRestrictions.FrequencyRangeEndGHz = 81
	doc.RegulatoryRestrictions.MaxBandwidthAllowedMHz = 4000
	doc.RegulatoryRestrictions.MaxTransmitPowerAllowedDBm = 12

	doc.SystemConfig.Summary = "Configuration exported from " + progName
	sp := &doc.SystemConfig.SceneParameters
	sp.AmbientTemperatureDegC = 20
	sp.MaxDetectableRangeM = 10
	sp.RangeResolutionCm = 5
	sp.MaxVelocityKmph = 26
	sp.VelocityResolutionKmph = 2
	sp.MeasurementRate = 10
	sp.TypicalDetectedObjectRCS = 1.0

	startFreqGHz := float64(cfg.Profile.StartFreqConst) * startFreqLSBHz / 1e9
	freqSlopeMHzUsec := float64(cfg.Profile.FreqSlopeConst) * freqSlopeLSBKHz / 1000.0
	idleTimeUsec := float64(cfg.Profile.IdleTimeConst) * timeLSBUs
	adcStartTimeUsec := float64(cfg.Profile.AdcStartTimeConst) * timeLSBUs
	rampEndTimeUsec := float64(cfg.Profile.RampEndTime) * timeLSBUs
	txStartTimeUsec := float64(cfg.Profile.TxStartTime) * timeLSBUs
	framePeriodicityMsec := float64(cfg.Frame.FramePeriodicity) * framePerLSBNs / 1e6

	for devID := 0; devID < numDevices; devID++ {
		var dev mmwaveDevice
		dev.MMWaveDeviceID = devID

		rf := &dev.RFConfig
		rf.WaveformType = "legacyFrameChirp"
		rf.MIMOScheme = "TDM"

		rf.ChanCfg = chanCfgJSON{
			RxChannelEn: Hex(cfg.Channel.RxChannelEn),
			TxChannelEn: Hex(cfg.Channel.TxChannelEn),
			Cascading:   int(cascadingRole(devID)),
		}

		rf.AdcOutCfg.Fmt.B2AdcBits = int(cfg.AdcOut.AdcBits)
		rf.AdcOutCfg.Fmt.B8FullScaleReducFctr = int(cfg.AdcOut.FullScaleReducFctr)
		rf.AdcOutCfg.Fmt.B2AdcOutFmt = int(cfg.AdcOut.AdcOutFmt)

		rf.LowPowerModeCfg.LpAdcMode = int(cfg.LowPower.LpAdcMode)

		rf.Profiles = []profileEntry{{profileCfgJSON{
			ProfileID:             int(cfg.Profile.ProfileID),
			PfVcoSelect:           Hex(cfg.Profile.PfVcoSelect),
			StartFreqConstGHz:     startFreqGHz,
			IdleTimeConstUsec:     idleTimeUsec,
			AdcStartTimeConstUsec: adcStartTimeUsec,
			RampEndTimeUsec:       rampEndTimeUsec,
			TxOutPowerBackoffCode: Hex(cfg.Profile.TxOutPowerBackoffCode),
			TxPhaseShifter:        Hex(cfg.Profile.TxPhaseShifter),
			FreqSlopeConstMHzUsec: freqSlopeMHzUsec,
			TxStartTimeUsec:       txStartTimeUsec,
			NumAdcSamples:         int(cfg.Profile.NumAdcSamples),
			DigOutSampleRate:      float64(cfg.Profile.DigOutSampleRate),
			HpfCornerFreq1:        int(cfg.Profile.HpfCornerFreq1),
			HpfCornerFreq2:        int(cfg.Profile.HpfCornerFreq2),
			RxGainDB:              Hex(cfg.Profile.RxGain),
		}}}

		rf.Chirps = make([]chirpEntry, 0, NumChirps)
		for idx := uint16(0); idx < NumChirps; idx++ {
			rf.Chirps = append(rf.Chirps, chirpEntry{chirpCfgJSON{
				ChirpStartIdx: int(idx),
				ChirpEndIdx:   int(idx),
				ProfileID:     int(cfg.Chirp.ProfileID),
				TxEnable:      Hex(txEnable(devID, idx)),
			}})
		}

		rf.RfInitCalConf.CalibEnMask = 0x1FF0

		rf.FrameCfg = frameCfgJSON{
			ChirpEndIdx:          int(cfg.Frame.ChirpEndIdx),
			ChirpStartIdx:        int(cfg.Frame.ChirpStartIdx),
			NumLoops:             int(cfg.Frame.NumLoops),
			NumFrames:            int(cfg.Frame.NumFrames),
			FramePeriodicityMsec: framePeriodicityMsec,
			TriggerSelect:        triggerSelect(devID),
		}

		rf.BpmChirps = []struct{}{}
		rf.MiscConf.MiscCtl = fmt.Sprintf("%d", cfg.Misc.MiscCtl)
		rf.PhaseShiftCfgs = []struct{}{}
		rf.ProgFiltConfs = []struct{}{}

		rf.TestSource = testSourceJSON{
			Objects: []testSourceObjectEntry{
				{testSourceObjectJSON{
					PosXM:     4.0 + float64(devID)*3.0,
					PosYM:     3.0 + float64(devID)*2.0,
					SigLvlDBFS: -2.5,
					PosXMinM:  -327.0,
					PosZMinM:  -327.0,
					PosXMaxM:  327.0,
					PosYMaxM:  327.0,
					PosZMaxM:  327.0,
				}},
				{testSourceObjectJSON{
					PosXM:     327.0,
					PosYM:     327.0,
					SigLvlDBFS: -95.0,
					PosXMinM:  -327.0,
					PosZMinM:  -327.0,
					PosXMaxM:  327.0,
					PosYMaxM:  327.0,
					PosZMaxM:  327.0,
				}},
			},
			RxAntPos: make([]antPosEntry, 4),
			TxAntPos: make([]antPosEntry, 3),
		}
		for rx := range rf.TestSource.RxAntPos {
			rf.TestSource.RxAntPos[rx].AntPos.AntPosX = float64(rx) * 0.5
		}

		rf.LdoBypassCfg = ldoJSON{
			LdoBypassEnable:   int(cfg.Ldo.LdoBypassEnable),
			SupplyMonIrDrop:   int(cfg.Ldo.SupplyMonIrDrop),
			IoSupplyIndicator: int(cfg.Ldo.IoSupplyIndicator),
		}
		rf.LoopbackBursts = []struct{}{}
		rf.DynChirpCfgs = []struct{}{}
		rf.DynPerChirpPhShftCfgs = []struct{}{}

		raw := &dev.RawDataCaptureConfig
		raw.DataFmtCfg.IqSwapSel = int(cfg.DataFmt.IqSwapSel)
		raw.DataFmtCfg.ChInterleave = int(cfg.DataFmt.ChInterleave)
		raw.DataPathCfg.IntfSel = int(cfg.DataPath.IntfSel)
		raw.DataPathCfg.TransferFmtPkt0 = Hex(cfg.DataPath.TransferFmtPkt0)
		raw.DataPathCfg.TransferFmtPkt1 = Hex(cfg.DataPath.TransferFmtPkt1)
		raw.DataPathClkCfg.LaneClkCfg = int(cfg.DataPathClk.LaneClkCfg)
		raw.DataPathClkCfg.DataRateMbps = dataRateMbps(cfg.DataPathClk.DataRate)
		raw.Csi2Cfg.LanePosPolSel = Hex(cfg.Csi2.LanePosPolSel)
		raw.Csi2Cfg.LineStartEndDis = int(cfg.Csi2.LineStartEndDis)

		doc.MMWaveDevices = append(doc.MMWaveDevices, dev)
	}

	dc := &doc.ProcessingChainConfig.DetectionChain
	dc.Name = "TI_GenericChain"
	dc.DetectionLoss = 1
	dc.SystemLoss = 1
	dc.ImplementationMargin = 2
	dc.DetectionSNR = 12
	dc.TheoreticalRxAntennaGain = 9
	dc.TheoreticalTxAntennaGain = 9

	return doc
}

// cascadingRole is 1 for the master chip, 2 for every slave.
func cascadingRole(devID int) uint8 {
	if devID == 0 {
		return 1
	}
	return 2
}

// triggerSelect is software trigger for the master, hardware for slaves.
func triggerSelect(devID int) int {
	if devID == 0 {
		return 1
	}
	return 2
}

func dataRateMbps(code uint8) int {
	if code == 1 {
		return 600
	}
	return 450
}

// exportConfig writes the effective device configuration as an mmWave
// Studio compatible JSON file next to the capture.
func exportConfig(cfg *DevConfig, filename string, numDevices int) error {
	doc := buildExportDoc(cfg, numDevices)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	fmt.Printf("Successfully exported configuration to %s\n", filename)
	return nil
}

// setupDoc is the companion metadata file used by the post-processing
// scripts to locate the capture and the board it came from.
type setupDoc struct {
	CaptureDirectory string `json:"capture_directory"`
	BoardIP          string `json:"board_ip"`
	FirmwareImage    string `json:"firmware_image"`
	GeneratedAt      string `json:"generated_at"`
	UnixTimestamp    int64  `json:"unix_timestamp"`
	Note             string `json:"note"`
}

func exportSetup(boardIP, captureDir, filename string) error {
	now := time.Now()
	doc := setupDoc{
		CaptureDirectory: captureDir,
		BoardIP:          boardIP,
		FirmwareImage:    "xwr22xx_metaImage.bin",
		GeneratedAt:      now.Format("2006-01-02T15:04:05"),
		UnixTimestamp:    now.Unix(),
		Note:             "mmWave Studio compatible metadata",
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}
