// Command remoti is a sample application CLI over the RF4CE stack: it
// drives the push-button-pair sequence, allow-pair, un-pairing, runtime
// report send, and profile-chain configuration through an in-process
// SimMAC and loopback profile transports, since no physical radio driver
// ships in this module.
//
// Noun-group CLI pattern:
//
//	remoti <resource> <action> [args]
//
// Examples:
//
//	remoti init
//	remoti pair start --peer-addr 0102030405060708 --device-type 1
//	remoti allow-pair start
//	remoti send 0 1 0000
//	remoti proxy list
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/gdp"
	"github.com/rf4ce/remoti/pkg/nvstore"
	"github.com/rf4ce/remoti/pkg/pairing"
	"github.com/rf4ce/remoti/pkg/rcn"
	"github.com/rf4ce/remoti/pkg/rti"
	"github.com/rf4ce/remoti/pkg/version"
	"github.com/rf4ce/remoti/pkg/z3d"
	"github.com/rf4ce/remoti/pkg/zid/ada"
	"github.com/rf4ce/remoti/pkg/zid/cld"
)

// App holds CLI state shared across all commands, wired once in
// PersistentPreRunE.
type App struct {
	// Option flags
	configPath string
	redisAddr  string
	redisDB    int
	role       string
	verbose    bool

	stack *config.Stack
	store *nvstore.Store
	mac   *rcn.SimMAC
	table *pairing.Table
	layer *rcn.Layer
	r     *rti.RTI

	gdpLayer *gdp.Layer
	cldLayer *cld.Layer
	adaLayer *ada.Layer
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "remoti",
	Short:             "RF4CE remote-control stack sample CLI",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `remoti drives the RF4CE network layer (NLME/NLDE), the RTI
application state machine, and the ZID/GDP HID-over-RF4CE profile
co-layers over an in-process simulated radio.

  remoti <resource> <action> [args]

Examples:
  remoti init
  remoti pair start --peer-addr 0102030405060708 --device-type 1
  remoti allow-pair start
  remoti send 0 1 0000
  remoti proxy list`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isVersionOrHelp(cmd) {
			return nil
		}
		return app.wire()
	},
}

func isVersionOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "version" || c.Name() == "help" {
			return true
		}
	}
	return false
}

// wire constructs the full RF4CE stack: the simulated MAC, the network
// layer, the RTI orchestrator, and every profile co-layer, registering
// each co-layer as a Configurator at its profile-chain bit.
func (a *App) wire() error {
	if a.verbose {
		obs.SetLogLevel("debug")
	} else {
		obs.SetLogLevel("warn")
	}

	stack, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading stack config: %w", err)
	}
	a.stack = stack

	if a.redisAddr != "" {
		a.store = nvstore.Open(a.redisAddr, a.redisDB)
		if err := a.store.Connect(); err != nil {
			return fmt.Errorf("connecting to NV store at %s: %w", a.redisAddr, err)
		}
	}

	a.table = pairing.New(stack.PairingTableSize, a.store)
	a.mac = rcn.NewSimMAC()
	a.layer = rcn.NewLayer(stack, a.mac, a.table)
	a.r = rti.New(stack, a.layer, a.store)

	transport := &loopbackGDPTransport{}
	a.gdpLayer = gdp.NewLayer(transport)
	a.r.RegisterConfigurator(rti.ProfileBitGDP, a.gdpLayer)

	switch a.role {
	case "controller", "":
		a.role = "controller"
		a.cldLayer = cld.New(stack, a.gdpLayer, &loopbackDataTransport{}, a.store)
		a.r.RegisterConfigurator(rti.ProfileBitZID, a.cldLayer)
	case "target":
		a.adaLayer = ada.New(stack, a.store)
		a.r.RegisterConfigurator(rti.ProfileBitZID, a.adaLayer)
	default:
		return fmt.Errorf("unknown --role %q (want controller or target)", a.role)
	}
	a.r.RegisterConfigurator(rti.ProfileBitZ3D, z3d.New())

	a.table.RegisterClearHook(func(ref uint8) {
		if a.cldLayer != nil {
			a.cldLayer.ClearPair(ref)
		}
		if a.adaLayer != nil {
			a.adaLayer.ClearPair(ref)
		}
	})

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Stack tunables YAML file")
	rootCmd.PersistentFlags().StringVar(&app.redisAddr, "redis-addr", "", "NV-store Redis address (empty runs NV-less)")
	rootCmd.PersistentFlags().IntVar(&app.redisDB, "redis-db", 0, "NV-store Redis DB index")
	rootCmd.PersistentFlags().StringVar(&app.role, "role", "controller", "Node role: controller (ZID Class Device) or target (ZID Adapter)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lifecycle", Title: "Lifecycle:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{initCmd, pairCmd, allowPairCmd, unpairCmd, sendCmd, proxyCmd, testModeCmd} {
		cmd.GroupID = "lifecycle"
		rootCmd.AddCommand(cmd)
	}
	versionCmd.GroupID = "meta"
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}
