package main

import (
	"log"
	"os"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

// Reporter checks accumulated driver statuses at named checkpoints and
// terminates the process when a required checkpoint fails. The board IP
// is carried here for log attribution instead of living in a global.
//
// Driver statuses are combined by plain integer summation, matching the
// link library convention: 0 is success, anything else is a failure.
// Summation means a positive and an exactly offsetting negative status
// would cancel out and be misreported as success. Observed driver codes
// are small positive values so this does not occur in practice, but it
// is a property of the aggregation, kept as-is on purpose; do not switch
// to a sticky first-failure accumulator without revisiting the callers
// that rely on the total as the process exit code.
type Reporter struct {
	IPAddr string

	exit func(code int) // overridable for tests
}

func NewReporter(ipAddr string) *Reporter {
	return &Reporter{IPAddr: ipAddr, exit: os.Exit}
}

// Check logs the outcome of a checkpoint. status 0 logs okMsg, anything
// else logs errMsg with the device map it concerns. When required is set
// a failure terminates the process with the accumulated status as the
// exit code.
func (r *Reporter) Check(status int, okMsg, errMsg string, devMap mmwlink.DevMap, required bool) {
	if status == 0 {
		log.Printf("[IP: %s] STATUS %4d | DEV MAP: %2d | %s", r.IPAddr, status, devMap, okMsg)
		return
	}
	log.Printf("[IP: %s] STATUS %4d | DEV MAP: %2d | %s", r.IPAddr, status, devMap, errMsg)
	if required {
		r.exit(status)
	}
}
