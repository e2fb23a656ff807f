package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	conf := NewDefaultConfig()
	conf.SetDataDir("/tmp/node")

	if conf.DatabaseDir != filepath.Join("/tmp/node", DefaultBadgerFile) {
		t.Fatalf("DatabaseDir should follow DataDir, got %s", conf.DatabaseDir)
	}

	conf.DatabaseDir = "/var/db"
	conf.SetDataDir("/tmp/other")
	if conf.DatabaseDir != "/var/db" {
		t.Fatalf("explicit DatabaseDir should be kept, got %s", conf.DatabaseDir)
	}
	if conf.Keyfile() != filepath.Join("/tmp/other", DefaultKeyfile) {
		t.Fatalf("unexpected Keyfile %s", conf.Keyfile())
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("REACTOR_CHAIN", "casper-test")
	t.Setenv("REACTOR_PEERS", "10.0.0.1:8000,10.0.0.2:8000")
	t.Setenv("REACTOR_HEARTBEAT", "250ms")

	conf := NewDefaultConfig()
	if err := conf.ApplyEnv(); err != nil {
		t.Fatal(err)
	}

	if conf.ChainName != "casper-test" {
		t.Fatalf("ChainName = %s", conf.ChainName)
	}
	if len(conf.Peers) != 2 || conf.Peers[1] != "10.0.0.2:8000" {
		t.Fatalf("Peers = %v", conf.Peers)
	}
	if conf.HeartbeatInterval != 250*time.Millisecond {
		t.Fatalf("HeartbeatInterval = %v", conf.HeartbeatInterval)
	}
	// unset variables leave the defaults alone
	if conf.GossipFanOut != DefaultGossipFanOut {
		t.Fatalf("GossipFanOut = %d", conf.GossipFanOut)
	}
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("REACTOR_WORKERS", "many")

	if err := NewDefaultConfig().ApplyEnv(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestReactorConfig(t *testing.T) {
	conf := NewTestConfig(t, logrus.InfoLevel)
	conf.Workers = 2
	conf.HaltOnOverrun = true

	rc := conf.ReactorConfig()
	if rc.Workers != 2 || !rc.HaltOnOverrun {
		t.Fatalf("reactor settings not carried over: %+v", rc)
	}
	if rc.Clock != conf.Clock {
		t.Fatalf("reactor should share the node clock")
	}
	if rc.Logger.Level != logrus.InfoLevel {
		t.Fatalf("reactor should share the node logger")
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"bogus": logrus.DebugLevel,
	}
	for in, want := range cases {
		if got := LogLevel(in); got != want {
			t.Fatalf("LogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFile(t *testing.T) {
	conf := NewDefaultConfig()
	conf.LogFile = filepath.Join(t.TempDir(), "node.log")

	logger := conf.Logger()
	if len(logger.Logger.Hooks[logrus.InfoLevel]) != 1 {
		t.Fatalf("log file hook not installed")
	}
}
