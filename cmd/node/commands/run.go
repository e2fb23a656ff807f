package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/reactor/src/node"
	"github.com/mosaicnetworks/reactor/src/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServiceName identifies the node in traces.
const ServiceName = "reactor-node"

//NewRunCmd returns the command that starts a reactor node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runNode,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runNode(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, ServiceName, _config.OTLPEndpoint)
	if err != nil {
		logger.Error("Cannot initialize tracing:", err)
		return err
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			logger.WithError(err).Warn("Flushing traces")
		}
	}()

	engine := node.NewNode(_config)

	if err := engine.Init(); err != nil {
		logger.Error("Cannot initialize node:", err)
		return err
	}

	//Relay SIGINT and SIGTERM as an orderly shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logger.WithField("signal", sig.String()).Info("Shutting down")
		engine.Shutdown(sig.String())
	}()

	return engine.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")

	// Service
	cmd.Flags().Bool("no-service", _config.NoService, "Disable the HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Duration("request-timeout", _config.RequestTimeout, "Time the HTTP service waits for the node")

	// Deploys
	cmd.Flags().String("chain", _config.ChainName, "Chain name deploys must target")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.DatabaseDir, "Dabatabase directory")

	// Gossip
	cmd.Flags().StringSlice("peers", _config.Peers, "Service IP:Port of the peers to gossip deploys to")
	cmd.Flags().Int("fan-out", _config.GossipFanOut, "Number of peers contacted per heartbeat")
	cmd.Flags().Duration("gossip-timeout", _config.GossipTimeout, "Gossip round timeout")
	cmd.Flags().Duration("heartbeat", _config.HeartbeatInterval, "Time between gossips")
	cmd.Flags().Duration("heartbeat-jitter", _config.HeartbeatJitter, "Maximum random delay added to each heartbeat")

	// Reactor
	cmd.Flags().Uint64("seed", _config.Seed, "Random seed, 0 draws one from the OS")
	cmd.Flags().Int("workers", _config.Workers, "Number of workers for offloaded tasks")
	cmd.Flags().Duration("drain-timeout", _config.DrainTimeout, "Time allowed to finish in-flight work on shutdown")
	cmd.Flags().Duration("handler-budget", _config.HandlerBudget, "Time a component may spend on one event")
	cmd.Flags().Bool("halt-on-overrun", _config.HaltOnOverrun, "Stop the node when a component exceeds its budget")

	// Telemetry
	cmd.Flags().String("otlp-endpoint", _config.OTLPEndpoint, "OTLP/HTTP trace collector URL, tracing is off when empty")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// environment variables override flags and the config file
	if err := _config.ApplyEnv(); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":           _config.DataDir,
		"LogLevel":          _config.LogLevel,
		"NoService":         _config.NoService,
		"ServiceAddr":       _config.ServiceAddr,
		"ChainName":         _config.ChainName,
		"Store":             _config.Store,
		"Peers":             _config.Peers,
		"GossipFanOut":      _config.GossipFanOut,
		"GossipTimeout":     _config.GossipTimeout,
		"HeartbeatInterval": _config.HeartbeatInterval,
		"HeartbeatJitter":   _config.HeartbeatJitter,
		"Workers":           _config.Workers,
		"DrainTimeout":      _config.DrainTimeout,
		"HandlerBudget":     _config.HandlerBudget,
		"HaltOnOverrun":     _config.HaltOnOverrun,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/reactor.toml (.json, .yaml also work)
	viper.SetConfigName("reactor")       // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
