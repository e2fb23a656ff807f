// Package config defines the configuration for a reactor node.
//
// Regardless of how the node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. Values come from
// defaults, then the config file and flags (through viper), then REACTOR_*
// environment variables. The data directory, Config.DataDir, holds:
//
//  priv_key // a plain text file containing the node's hex private key, created on first run.
//  badger_db // (optional) the deploy database when Store is set.
//  reactor.toml // (optional) the config file read by the node command.
package config
