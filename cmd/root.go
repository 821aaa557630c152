package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quangmanh-dev/webscan/internal/probes"
	"github.com/quangmanh-dev/webscan/internal/ratelimit"
	"github.com/quangmanh-dev/webscan/internal/scan"
	"github.com/quangmanh-dev/webscan/internal/score"
	"github.com/quangmanh-dev/webscan/internal/session"
	"github.com/quangmanh-dev/webscan/internal/store"
)

var cfgFile string
var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "webscan",
	Short: "Tier-gated security scanning for web targets",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".webscan")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("WEBSCAN")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		l, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.webscan.yaml)")

	viper.SetDefault("rate_limit_max", 15)
	viper.SetDefault("rate_limit_window", "60s")
	viper.SetDefault("probe_timeout", "10s")
	viper.SetDefault("probe_pace_rps", 5)
}

// core bundles the wired scan subsystem for the serve and scan commands.
type core struct {
	dispatcher *scan.Dispatcher
	sessions   *session.Store
	limiter    *ratelimit.Limiter
	backing    store.Store
}

func (c *core) close() {
	if c.backing != nil {
		_ = c.backing.Close()
	}
}

// buildCore wires the dispatcher, session store, and rate limiter from
// configuration. All secrets and tunables flow in here; the internal
// packages never read config themselves.
func buildCore(production bool) (*core, error) {
	var backing store.Store
	if path := viper.GetString("store_path"); path != "" {
		bolt, err := store.OpenBolt(path)
		if err != nil {
			return nil, fmt.Errorf("opening store at %s: %w", path, err)
		}
		backing = bolt
	} else {
		logger.Warn("no store_path configured: rate limiting fails open and session elevation is not durable")
	}

	secret := []byte(viper.GetString("signing_secret"))
	if len(secret) == 0 {
		if production {
			return nil, fmt.Errorf("signing_secret is required in production (set WEBSCAN_SIGNING_SECRET)")
		}
		secret = ephemeralSecret()
		logger.Warn("using ephemeral signing secret: session cookies will not survive restarts")
	}

	sessions, err := session.NewStore(secret, backing, logger)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(backing, ratelimit.Config{
		Max:    viper.GetInt("rate_limit_max"),
		Window: viper.GetDuration("rate_limit_window"),
	}, logger)

	probeCfg := probes.Config{HTTPTimeout: viper.GetDuration("probe_timeout")}
	registry := scan.NewRegistry(
		probes.BusinessTier(probeCfg),
		probes.EngineerTier(probeCfg),
		probes.AdminTier(probeCfg),
	)

	scorer := score.New(weightsFromConfig(), logger)
	dispatcher := scan.NewDispatcher(registry, scorer, logger,
		scan.WithModuleTimeout(viper.GetDuration("probe_timeout")),
		scan.WithPacing(viper.GetInt("probe_pace_rps")),
	)

	return &core{
		dispatcher: dispatcher,
		sessions:   sessions,
		limiter:    limiter,
		backing:    backing,
	}, nil
}

// weightsFromConfig overlays configured deductions on the defaults. Keys are
// score_weights.<severity>.business / .technical.
func weightsFromConfig() score.Weights {
	weights := score.DefaultWeights()
	for severity, d := range weights {
		prefix := "score_weights." + string(severity)
		if viper.IsSet(prefix + ".business") {
			d.Business = viper.GetInt(prefix + ".business")
		}
		if viper.IsSet(prefix + ".technical") {
			d.Technical = viper.GetInt(prefix + ".technical")
		}
		weights[severity] = d
	}
	return weights
}

func ephemeralSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Deterministic last resort, still unusable across restarts.
		return []byte(hex.EncodeToString([]byte(time.Now().String())))
	}
	return b
}
