// Package config loads and validates the base station's runtime
// configuration: the network identity it advertises over the air, and the
// ambient infrastructure (logging, key-value store, metrics, voice bridge)
// it wires itself to at startup.
package config

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// Network carries the cell identity and radio parameters broadcast in
// MAC-SYSINFO/D-MLE-SYSINFO and used to derive the scrambling code.
type Network struct {
	MCC                  int    `name:"mcc" description:"Mobile Country Code broadcast in system information" default:"901"`
	MNC                  int    `name:"mnc" description:"Mobile Network Code broadcast in system information" default:"1"`
	ColourCode           int    `name:"colour-code" description:"6-bit colour code identifying this cell" default:"1"`
	MainCarrierHz        int64  `name:"main-carrier-hz" description:"Main carrier frequency in Hz" default:"392000000"`
	Band                 int    `name:"band" description:"Frequency band code" default:"4"`
	FrequencyOffsetHz    int    `name:"frequency-offset-hz" description:"Carrier frequency offset in Hz" default:"0"`
	DuplexSpacingID      int    `name:"duplex-spacing-id" description:"Duplex spacing table index" default:"5"`
	ReverseOperation     bool   `name:"reverse-operation" description:"Reverse the normal uplink/downlink carrier assignment" default:"false"`
	LocationArea         int    `name:"location-area" description:"Location area code" default:"1"`
	SupportedServices    uint32 `name:"supported-services" description:"Bitmask of optional services this cell supports" default:"0"`
	LateEntrySupported   bool   `name:"late-entry-supported" description:"Whether late entry into an existing call is supported" default:"true"`
}

// Redis configures the key-value/pubsub backend. When disabled, in-memory
// implementations are used instead (single-process deployments).
type Redis struct {
	Enabled  bool   `name:"enabled" description:"Use Redis for the key-value store and pubsub bus instead of in-memory" default:"false"`
	Host     string `name:"host" description:"Redis host" default:"localhost"`
	Port     int    `name:"port" description:"Redis port" default:"6379"`
	Password string `name:"password" description:"Redis password"`
}

// Metrics configures the Prometheus metrics HTTP server.
type Metrics struct {
	Enabled bool   `name:"enabled" description:"Serve Prometheus metrics" default:"true"`
	Bind    string `name:"bind" description:"Metrics server bind address" default:"0.0.0.0"`
	Port    int    `name:"port" description:"Metrics server port" default:"9100"`
}

// PProf configures the debug profiling HTTP server.
type PProf struct {
	Enabled bool   `name:"enabled" description:"Serve pprof debug profiles" default:"false"`
	Bind    string `name:"bind" description:"PProf server bind address" default:"127.0.0.1"`
	Port    int    `name:"port" description:"PProf server port" default:"6060"`
}

// VoiceBridge configures the external voice-bridge collaborator connection.
type VoiceBridge struct {
	Enabled             bool     `name:"enabled" description:"Connect to an external voice bridge for call audio" default:"false"`
	URL                 string   `name:"url" description:"Websocket URL of the voice bridge collaborator" default:"ws://localhost:8089/bridge"`
	AuthSecret          string   `name:"auth-secret" description:"Shared secret used to derive the voice bridge auth token"`
	RegisteredISSI      uint32   `name:"registered-issi" description:"ISSI this cell registers with the voice bridge as"`
	AffiliatedGroups    []uint32 `name:"affiliated-groups" description:"GSSIs affiliated with the voice bridge on connect"`
	JitterBaseLatencyMs int      `name:"jitter-base-latency-ms" description:"Base jitter buffer depth in milliseconds before playout" default:"60"`
}

// AuthToken derives a stable per-deployment token for authenticating to the
// voice bridge, the same way the teacher derives its session secret: PBKDF2
// over a configured passphrase, salted with the cell's network identity so
// two cells sharing an auth secret still get distinct tokens.
func (v VoiceBridge) AuthToken(salt string) []byte {
	const iterations = 4096
	const keyLen = 32
	return pbkdf2.Key([]byte(v.AuthSecret), []byte(salt), iterations, keyLen, sha256.New)
}

// Config is the complete base station configuration, loaded via configulator
// from environment variables, flags, or a config file.
type Config struct {
	LogLevel    LogLevel    `name:"log-level" description:"Logging verbosity" default:"info"`
	Network     Network     `name:"network" description:"Cell identity and radio parameters"`
	Redis       Redis       `name:"redis" description:"Key-value store and pubsub backend"`
	Metrics     Metrics     `name:"metrics" description:"Prometheus metrics server"`
	PProf       PProf       `name:"pprof" description:"Debug profiling server"`
	VoiceBridge VoiceBridge `name:"voice-bridge" description:"External voice bridge collaborator"`
}
