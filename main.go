package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmwcas/mmwcas/pkg/mmwlink"
)

const (
	progName    = "mmwcas"
	progVersion = "0.2.0"

	// captureRoot is where the TDA board stores capture directories.
	captureRoot = "/mnt/ssd"

	transferWorkers = 2
	transferDepth   = 8
)

var opts struct {
	captureDir  string
	port        int
	ipAddr      string
	configure   bool
	record      bool
	durationMin float64
	cfgFile     string
	monitor     bool
	intervalSec int
	sim         bool
	statusPort  int
	postprocDir string
	ledgerPath  string
}

var rootCmd = &cobra.Command{
	Use:   progName,
	Short: "Configuration and control tool for the TI MMWave cascade evaluation module",
	Long: `mmwcas brings up a 4-chip MMWCAS-RF-EVM cascade (AWR2243 master plus
three slaves behind a TDA capture board), programs the TDM MIMO chirp
schedule, and drives single-shot or continuous capture cycles whose
output is offloaded to a post-processing directory in the background.`,
	Version: progVersion,
	Run:     run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.captureDir, "capture-dir", "d", "",
		"Name of the directory where recordings are stored on the DSP board")
	f.IntVarP(&opts.port, "port", "p", 5001,
		"Port number the DSP board server app is listening on")
	f.StringVarP(&opts.ipAddr, "ip-addr", "i", "192.168.33.180",
		"IP address of the MMWCAS DSP evaluation module")
	f.BoolVarP(&opts.configure, "configure", "c", false,
		"Configure the MMWCAS-RF-EVM board")
	f.BoolVarP(&opts.record, "record", "r", false,
		"Trigger data recording. This assumes that configuration is completed.")
	f.Float64VarP(&opts.durationMin, "time", "t", 1.0,
		"How long the recording should last, in minutes")
	f.StringVarP(&opts.cfgFile, "cfg", "f", "",
		"TOML configuration file. Overwrites the default config when provided")
	f.BoolVarP(&opts.monitor, "monitor", "m", false,
		"Enable continuous monitoring mode")
	f.IntVarP(&opts.intervalSec, "interval", "n", 10,
		"Monitoring interval in seconds")
	f.BoolVar(&opts.sim, "sim", false,
		"Use the simulated radar link instead of hardware")
	f.IntVar(&opts.statusPort, "status-port", 0,
		"Serve the websocket status feed and /metrics on this port (0 = off)")
	f.StringVar(&opts.postprocDir, "postproc-dir", "PostProc",
		"Local destination directory for background capture transfers")
	f.StringVar(&opts.ledgerPath, "ledger", "captures.parquet",
		"Capture session ledger file (empty = disabled)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	log.Printf("MMWave EVM configuration and control application")

	if opts.captureDir == "" {
		opts.captureDir = fmt.Sprintf("MMWL_Capture_%d", time.Now().Unix())
	}

	cfg := defaultConfig()
	if opts.cfgFile != "" {
		if err := loadConfigFile(opts.cfgFile, &cfg); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	rep := NewReporter(opts.ipAddr)

	var drv mmwlink.Driver
	if opts.sim {
		log.Printf("[SIM] Using simulated radar link")
		drv = mmwlink.NewSim()
	} else {
		// The hardware backend is linked in by the board build; this
		// binary ships with the simulator only.
		log.Fatalf("No radar link backend available in this build; rerun with --sim for a dry run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.configure {
		status := drv.TdaInit(opts.ipAddr, opts.port, cfg.DeviceMap)
		rep.Check(status,
			"[MMWCAS-DSP] TDA Connected!",
			"[MMWCAS-DSP] Couldn't connect to TDA board!", tdaMap, true)

		configureCascade(drv, rep, &cfg)

		if err := exportConfig(&cfg, opts.captureDir+".mmwave.json", mmwlink.NumDevices); err != nil {
			exportFailures.Inc()
			log.Printf("Error: config export failed: %v", err)
		}
		time.Sleep(2 * time.Second)
	}

	if !opts.record {
		return
	}

	if err := os.MkdirAll(opts.postprocDir, 0755); err != nil {
		log.Printf("Warning: could not create %s: %v", opts.postprocDir, err)
	}
	queue := NewTransferQueue(transferWorkers, transferDepth, opts.ipAddr, captureRoot, opts.postprocDir)

	ctrl := NewController(drv, rep, &cfg, queue)

	if opts.ledgerPath != "" {
		ledger, err := NewLedger(opts.ledgerPath, &cfg)
		if err != nil {
			log.Printf("Warning: session ledger disabled: %v", err)
		} else {
			ctrl.ledger = ledger
			defer ledger.Close()
		}
	}

	if opts.statusPort > 0 {
		feed := NewStatusFeed()
		go serveStatus(opts.statusPort, feed)
		ctrl.feed = feed
	}

	if opts.monitor {
		ctrl.Monitor(ctx, time.Duration(opts.intervalSec)*time.Second)
	} else {
		ctrl.RecordOnce(opts.captureDir, recordDuration(opts.durationMin))
	}

	// Let queued transfers drain before exiting.
	queue.Close()
}
