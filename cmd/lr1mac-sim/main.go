// Command lr1mac-sim drives a mac.Engine against a simulated radio so the
// Class A uplink/Join/RX-window state machine can be exercised without real
// hardware.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loraedge/lr1mac/band"
	"github.com/loraedge/lr1mac/bsp"
	"github.com/loraedge/lr1mac/mac"
	"github.com/loraedge/lr1mac/nvm"
	"github.com/loraedge/lr1mac/planner"
	"github.com/loraedge/lr1mac/ral"
)

// simConfig is the YAML shape of a simulation run.
type simConfig struct {
	Device struct {
		Region     string `yaml:"region"`
		DevEUI     string `yaml:"dev_eui"`
		JoinEUI    string `yaml:"join_eui"`
		AppKey     string `yaml:"app_key"`
		BypassJoin bool   `yaml:"bypass_join"`
	} `yaml:"device"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	Schedule []struct {
		AfterMs   int64  `yaml:"after_ms"`
		Confirmed bool   `yaml:"confirmed"`
		FPort     uint8  `yaml:"fport"`
		Payload   string `yaml:"payload"` // hex
	} `yaml:"schedule"`

	RunForMs int64 `yaml:"run_for_ms"`
}

var configFile string

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lr1mac-sim",
	Short: "Run a simulated LoRaWAN Class A device against the mac engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a simulation run from a config file",
	RunE:  runSim,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lr1mac-sim version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "sim.yaml", "simulation config file")
	rootCmd.AddCommand(runCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*simConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg simConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	log := logrus.New()
	trace := bsp.NewTrace(log)
	clock := bsp.NewRealClock()

	region, err := band.GetConfig(band.Name(cfg.Device.Region))
	if err != nil {
		return fmt.Errorf("region: %w", err)
	}

	radio := ral.NewSimulator()
	p := planner.New(radio, clock)
	defer p.Close()

	var store nvm.Store
	if cfg.Store.Path != "" {
		store = nvm.NewFileStore(cfg.Store.Path)
	} else {
		store = nvm.NewMemStore()
	}

	identity, err := parseIdentity(cfg)
	if err != nil {
		return err
	}

	engine, err := mac.New(mac.Config{
		Identity:   identity,
		Region:     region,
		Planner:    p,
		Store:      store,
		Clock:      clock,
		Trace:      trace,
		BypassJoin: cfg.Device.BypassJoin,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	sup := mac.NewSupervisor(engine)
	go sup.Run()
	defer sup.Close()

	if !cfg.Device.BypassJoin {
		sup.Enqueue(mac.Task{ID: mac.JoinTask, Priority: mac.PriorityHigh, RunAt: time.Now()})
	}

	for _, s := range cfg.Schedule {
		payload, err := hex.DecodeString(s.Payload)
		if err != nil {
			return fmt.Errorf("schedule payload: %w", err)
		}
		sup.Enqueue(mac.Task{
			ID:        mac.SendTask,
			Priority:  mac.PriorityNormal,
			RunAt:     time.Now().Add(time.Duration(s.AfterMs) * time.Millisecond),
			Confirmed: s.Confirmed,
			FPort:     s.FPort,
			Payload:   payload,
		})
	}

	runFor := time.Duration(cfg.RunForMs) * time.Millisecond
	if runFor <= 0 {
		runFor = 10 * time.Second
	}
	time.Sleep(runFor)

	log.Info("simulation finished")
	return nil
}

func parseIdentity(cfg *simConfig) (mac.DeviceIdentity, error) {
	var id mac.DeviceIdentity

	if err := id.DevEUI.UnmarshalText([]byte(cfg.Device.DevEUI)); err != nil {
		return id, fmt.Errorf("dev_eui: %w", err)
	}
	if err := id.JoinEUI.UnmarshalText([]byte(cfg.Device.JoinEUI)); err != nil {
		return id, fmt.Errorf("join_eui: %w", err)
	}
	if err := id.AppKey.UnmarshalText([]byte(cfg.Device.AppKey)); err != nil {
		return id, fmt.Errorf("app_key: %w", err)
	}

	return id, nil
}
