package mmwlink

import "sync"

// SimCall is one recorded driver call.
type SimCall struct {
	Name      string
	Map       DevMap
	Cascading uint8
	Chirp     ChirpCfg
	Arm       TdaArmCfg
}

// Sim is an in-memory Driver that records every call in order and returns
// scripted statuses. It backs the --sim dry-run mode and the test suite.
//
// Statuses maps a call name (e.g. "ChirpConfig") to a queue of return
// values consumed one per call; once the queue is exhausted, or for calls
// with no entry, the call returns 0.
type Sim struct {
	mu       sync.Mutex
	Calls    []SimCall
	Statuses map[string][]int
}

func NewSim() *Sim {
	return &Sim{Statuses: make(map[string][]int)}
}

// FailNext queues statuses to be returned by the next calls of name.
func (s *Sim) FailNext(name string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Statuses == nil {
		s.Statuses = make(map[string][]int)
	}
	s.Statuses[name] = append(s.Statuses[name], statuses...)
}

// CallNames returns the ordered names of all recorded calls.
func (s *Sim) CallNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.Calls))
	for i, c := range s.Calls {
		names[i] = c.Name
	}
	return names
}

// CallsNamed returns the recorded calls with the given name, in order.
func (s *Sim) CallsNamed(name string) []SimCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SimCall
	for _, c := range s.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (s *Sim) record(c SimCall) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, c)
	if q := s.Statuses[c.Name]; len(q) > 0 {
		s.Statuses[c.Name] = q[1:]
		return q[0]
	}
	return 0
}

func (s *Sim) DevicePowerUp(m DevMap, pollTimeoutMs, ackTimeoutMs int) int {
	return s.record(SimCall{Name: "DevicePowerUp", Map: m})
}

func (s *Sim) FirmwareDownload(m DevMap) int {
	return s.record(SimCall{Name: "FirmwareDownload", Map: m})
}

func (s *Sim) SetDeviceCrcType(m DevMap) int {
	return s.record(SimCall{Name: "SetDeviceCrcType", Map: m})
}

func (s *Sim) RfEnable(m DevMap) int {
	return s.record(SimCall{Name: "RfEnable", Map: m})
}

func (s *Sim) ChannelConfig(m DevMap, cascading uint8, cfg ChanCfg) int {
	return s.record(SimCall{Name: "ChannelConfig", Map: m, Cascading: cascading})
}

func (s *Sim) AdcOutConfig(m DevMap, cfg AdcOutCfg) int {
	return s.record(SimCall{Name: "AdcOutConfig", Map: m})
}

func (s *Sim) RfDeviceConfig(m DevMap) int {
	return s.record(SimCall{Name: "RfDeviceConfig", Map: m})
}

func (s *Sim) LdoBypassConfig(m DevMap, cfg LdoCfg) int {
	return s.record(SimCall{Name: "LdoBypassConfig", Map: m})
}

func (s *Sim) DataFmtConfig(m DevMap, cfg DataFmtCfg) int {
	return s.record(SimCall{Name: "DataFmtConfig", Map: m})
}

func (s *Sim) LowPowerConfig(m DevMap, cfg LowPowerCfg) int {
	return s.record(SimCall{Name: "LowPowerConfig", Map: m})
}

func (s *Sim) ApllSynthBwConfig(m DevMap) int {
	return s.record(SimCall{Name: "ApllSynthBwConfig", Map: m})
}

func (s *Sim) SetMiscConfig(m DevMap, cfg MiscCfg) int {
	return s.record(SimCall{Name: "SetMiscConfig", Map: m})
}

func (s *Sim) RfInit(m DevMap) int {
	return s.record(SimCall{Name: "RfInit", Map: m})
}

func (s *Sim) DataPathConfig(m DevMap, cfg DataPathCfg) int {
	return s.record(SimCall{Name: "DataPathConfig", Map: m})
}

func (s *Sim) HsiClockConfig(m DevMap, clkCfg DataPathClkCfg, hsiCfg HsiClkCfg) int {
	return s.record(SimCall{Name: "HsiClockConfig", Map: m})
}

func (s *Sim) Csi2LaneConfig(m DevMap, cfg Csi2Cfg) int {
	return s.record(SimCall{Name: "Csi2LaneConfig", Map: m})
}

func (s *Sim) ProfileConfig(m DevMap, cfg ProfileCfg) int {
	return s.record(SimCall{Name: "ProfileConfig", Map: m})
}

func (s *Sim) ChirpConfig(m DevMap, cfg ChirpCfg) int {
	return s.record(SimCall{Name: "ChirpConfig", Map: m, Chirp: cfg})
}

func (s *Sim) FrameConfig(m DevMap, frameCfg FrameCfg, chanCfg ChanCfg, adcCfg AdcOutCfg, pathCfg DataPathCfg, profCfg ProfileCfg) int {
	return s.record(SimCall{Name: "FrameConfig", Map: m})
}

func (s *Sim) TdaInit(ipAddr string, port int, m DevMap) int {
	return s.record(SimCall{Name: "TdaInit", Map: m})
}

func (s *Sim) ArmTda(cfg TdaArmCfg) int {
	return s.record(SimCall{Name: "ArmTda", Arm: cfg})
}

func (s *Sim) StartFrame(m DevMap) int {
	return s.record(SimCall{Name: "StartFrame", Map: m})
}

func (s *Sim) StopFrame(m DevMap) int {
	return s.record(SimCall{Name: "StopFrame", Map: m})
}

func (s *Sim) DearmTda() int {
	return s.record(SimCall{Name: "DearmTda"})
}

var _ Driver = (*Sim)(nil)
