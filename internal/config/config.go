package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "tandem.cfg.json"

// Config is the full configuration tree.
type Config struct {
	LogLevel    string            `json:"logLevel" mapstructure:"logLevel"`
	LogsDir     string            `json:"logsDir" mapstructure:"logsDir"`
	Peer        PeerConfig        `json:"peer" mapstructure:"peer"`
	Steering    SteeringConfig    `json:"steering" mapstructure:"steering"`
	Dynamics    DynamicsConfig    `json:"dynamics" mapstructure:"dynamics"`
	Nitro       NitroConfig       `json:"nitro" mapstructure:"nitro"`
	Replication ReplicationConfig `json:"replication" mapstructure:"replication"`
	Net         NetConfig         `json:"net" mapstructure:"net"`
	Storage     StorageConfig     `json:"storage" mapstructure:"storage"`
	DB          DBConfig          `json:"db" mapstructure:"db"`
	OTel        OTelConfig        `json:"otel" mapstructure:"otel"`
	Influx      InfluxConfig      `json:"influx" mapstructure:"influx"`
	Monitor     MonitorConfig     `json:"monitor" mapstructure:"monitor"`
	API         APIConfig         `json:"api" mapstructure:"api"`
}

// PeerConfig holds the per-peer runtime cadence and coop settings.
type PeerConfig struct {
	Name                   string        `json:"name" mapstructure:"name"`
	SessionName            string        `json:"sessionName" mapstructure:"sessionName"`
	Tag                    string        `json:"tag" mapstructure:"tag"`
	CoopNetwork            bool          `json:"coopNetwork" mapstructure:"coopNetwork"`
	AuthorityControlsRight bool          `json:"authorityControlsRight" mapstructure:"authorityControlsRight"`
	PhysicsStep            time.Duration `json:"physicsStep" mapstructure:"physicsStep"`
	MaxFrameTime           time.Duration `json:"maxFrameTime" mapstructure:"maxFrameTime"`
	UpdateRate             int           `json:"updateRate" mapstructure:"updateRate"`
	SendRate               int           `json:"sendRate" mapstructure:"sendRate"`
}

// SteeringConfig holds wheel angle limits and delegation rate limits. Angles are degrees.
type SteeringConfig struct {
	MaxSteerAngle        float64       `json:"maxSteerAngle" mapstructure:"maxSteerAngle"`
	SteerSlewRate        float64       `json:"steerSlewRate" mapstructure:"steerSlewRate"`
	MaxStepPerTick       float64       `json:"maxStepPerTick" mapstructure:"maxStepPerTick"`
	ArcadeSteering       bool          `json:"arcadeSteering" mapstructure:"arcadeSteering"`
	ArcadeSteerSnapSpeed float64       `json:"arcadeSteerSnapSpeed" mapstructure:"arcadeSteerSnapSpeed"`
	ArcadeSteerBoost     float64       `json:"arcadeSteerBoost" mapstructure:"arcadeSteerBoost"`
	SpeedSensitive       bool          `json:"speedSensitive" mapstructure:"speedSensitive"`
	ReduceStartKmh       float64       `json:"reduceStartKmh" mapstructure:"reduceStartKmh"`
	ReduceEndKmh         float64       `json:"reduceEndKmh" mapstructure:"reduceEndKmh"`
	MinSteerFactor       float64       `json:"minSteerFactor" mapstructure:"minSteerFactor"`
	SendInterval         time.Duration `json:"sendInterval" mapstructure:"sendInterval"`
	SendMinDelta         float64       `json:"sendMinDelta" mapstructure:"sendMinDelta"`
	ToeThreshold         float64       `json:"toeThreshold" mapstructure:"toeThreshold"`
}

// DynamicsConfig holds drivetrain, braking, reverse and assist tuning.
// Speeds suffixed Kmh are km/h, everything else is SI.
type DynamicsConfig struct {
	MassKg         float64 `json:"massKg" mapstructure:"massKg"`
	TargetSpeedKmh float64 `json:"targetSpeedKmh" mapstructure:"targetSpeedKmh"`
	MaxMotorTorque float64 `json:"maxMotorTorque" mapstructure:"maxMotorTorque"`
	MaxBrakeTorque float64 `json:"maxBrakeTorque" mapstructure:"maxBrakeTorque"`
	CruiseKp       float64 `json:"cruiseKp" mapstructure:"cruiseKp"`
	SpeedDeadzone  float64 `json:"speedDeadzone" mapstructure:"speedDeadzone"`

	DriveRearWheels  bool `json:"driveRearWheels" mapstructure:"driveRearWheels"`
	DriveFrontWheels bool `json:"driveFrontWheels" mapstructure:"driveFrontWheels"`

	ArcadeAcceleration       bool    `json:"arcadeAcceleration" mapstructure:"arcadeAcceleration"`
	AccelMode                string  `json:"accelMode" mapstructure:"accelMode"`
	FullThrottleUntilPercent float64 `json:"fullThrottleUntilPercent" mapstructure:"fullThrottleUntilPercent"`
	ArcadeTorqueMultiplier   float64 `json:"arcadeTorqueMultiplier" mapstructure:"arcadeTorqueMultiplier"`
	ArcadeExtraAcceleration  float64 `json:"arcadeExtraAcceleration" mapstructure:"arcadeExtraAcceleration"`
	SnapAccelPerSecond       float64 `json:"snapAccelPerSecond" mapstructure:"snapAccelPerSecond"`

	ArcadeBraking         bool    `json:"arcadeBraking" mapstructure:"arcadeBraking"`
	ArcadeBrakeMultiplier float64 `json:"arcadeBrakeMultiplier" mapstructure:"arcadeBrakeMultiplier"`
	BrakeExtraDecel       float64 `json:"brakeExtraDecel" mapstructure:"brakeExtraDecel"`
	SnapBrakePerSecond    float64 `json:"snapBrakePerSecond" mapstructure:"snapBrakePerSecond"`

	AutoReverseOnToeIn              bool    `json:"autoReverseOnToeIn" mapstructure:"autoReverseOnToeIn"`
	ReverseTargetSpeedKmh           float64 `json:"reverseTargetSpeedKmh" mapstructure:"reverseTargetSpeedKmh"`
	ReverseTorqueMultiplier         float64 `json:"reverseTorqueMultiplier" mapstructure:"reverseTorqueMultiplier"`
	ReverseEnableSpeedThreshold     float64 `json:"reverseEnableSpeedThreshold" mapstructure:"reverseEnableSpeedThreshold"`
	ArcadeReverseUseSameMode        bool    `json:"arcadeReverseUseSameMode" mapstructure:"arcadeReverseUseSameMode"`
	ReverseExtraAcceleration        float64 `json:"reverseExtraAcceleration" mapstructure:"reverseExtraAcceleration"`
	ReverseSnapPerSecond            float64 `json:"reverseSnapPerSecond" mapstructure:"reverseSnapPerSecond"`
	ReverseFullThrottleUntilPercent float64 `json:"reverseFullThrottleUntilPercent" mapstructure:"reverseFullThrottleUntilPercent"`

	YawAssist            bool    `json:"yawAssist" mapstructure:"yawAssist"`
	YawAssistStrength    float64 `json:"yawAssistStrength" mapstructure:"yawAssistStrength"`
	YawAssistMaxAtKmh    float64 `json:"yawAssistMaxAtKmh" mapstructure:"yawAssistMaxAtKmh"`
	EnhancedHandling     bool    `json:"enhancedHandling" mapstructure:"enhancedHandling"`
	LateralGripPerSecond float64 `json:"lateralGripPerSecond" mapstructure:"lateralGripPerSecond"`
	UseAntiRoll          bool    `json:"useAntiRoll" mapstructure:"useAntiRoll"`
	AntiRollFront        float64 `json:"antiRollFront" mapstructure:"antiRollFront"`
	AntiRollRear         float64 `json:"antiRollRear" mapstructure:"antiRollRear"`
	UseDownforce         bool    `json:"useDownforce" mapstructure:"useDownforce"`
	DownforcePerKmh      float64 `json:"downforcePerKmh" mapstructure:"downforcePerKmh"`
	UseRollDamping       bool    `json:"useRollDamping" mapstructure:"useRollDamping"`
	RollDamping          float64 `json:"rollDamping" mapstructure:"rollDamping"`
}

// NitroConfig holds the boost resource tuning.
type NitroConfig struct {
	Enabled         bool    `json:"enabled" mapstructure:"enabled"`
	ExtraKmh        float64 `json:"extraKmh" mapstructure:"extraKmh"`
	StartAmount     float64 `json:"startAmount" mapstructure:"startAmount"`
	DrainPerSecond  float64 `json:"drainPerSecond" mapstructure:"drainPerSecond"`
	RegenPerSecond  float64 `json:"regenPerSecond" mapstructure:"regenPerSecond"`
	TargetLerpSpeed float64 `json:"targetLerpSpeed" mapstructure:"targetLerpSpeed"`
}

// ReplicationConfig holds snapshot buffering and reconstruction tuning. Times are seconds.
type ReplicationConfig struct {
	BackTimeBase        float64 `json:"backTimeBase" mapstructure:"backTimeBase"`
	RTTFactor           float64 `json:"rttFactor" mapstructure:"rttFactor"`
	JitterBuffer        float64 `json:"jitterBuffer" mapstructure:"jitterBuffer"`
	AdaptiveJitterScale float64 `json:"adaptiveJitterScale" mapstructure:"adaptiveJitterScale"`
	MaxAdaptiveJitter   float64 `json:"maxAdaptiveJitter" mapstructure:"maxAdaptiveJitter"`
	MinBackTime         float64 `json:"minBackTime" mapstructure:"minBackTime"`
	MaxBackTime         float64 `json:"maxBackTime" mapstructure:"maxBackTime"`
	ArrivalSmoothing    float64 `json:"arrivalSmoothing" mapstructure:"arrivalSmoothing"`
	MaxSnapshots        int     `json:"maxSnapshots" mapstructure:"maxSnapshots"`
	MaxHorizon          float64 `json:"maxHorizon" mapstructure:"maxHorizon"`
	ExtrapolationLimit  float64 `json:"extrapolationLimit" mapstructure:"extrapolationLimit"`
	ExtrapolationPolicy string  `json:"extrapolationPolicy" mapstructure:"extrapolationPolicy"`
	SnapDistance        float64 `json:"snapDistance" mapstructure:"snapDistance"`
	SnapAngle           float64 `json:"snapAngle" mapstructure:"snapAngle"`
	Smoothing           string  `json:"smoothing" mapstructure:"smoothing"`
	SmoothingRate       float64 `json:"smoothingRate" mapstructure:"smoothingRate"`
	MaxStepPerTick      float64 `json:"maxStepPerTick" mapstructure:"maxStepPerTick"`
	VelocitySmoothing   float64 `json:"velocitySmoothing" mapstructure:"velocitySmoothing"`
}

// NetConfig holds transport settings.
type NetConfig struct {
	Transport         string        `json:"transport" mapstructure:"transport"`
	RelayURL          string        `json:"relayUrl" mapstructure:"relayUrl"`
	ListenAddr        string        `json:"listenAddr" mapstructure:"listenAddr"`
	Secret            string        `json:"secret" mapstructure:"secret"`
	PingInterval      time.Duration `json:"pingInterval" mapstructure:"pingInterval"`
	WriteWait         time.Duration `json:"writeWait" mapstructure:"writeWait"`
	MaxReconnect      int           `json:"maxReconnect" mapstructure:"maxReconnect"`
	MaxBackoff        time.Duration `json:"maxBackoff" mapstructure:"maxBackoff"`
	CompressSnapshots bool          `json:"compressSnapshots" mapstructure:"compressSnapshots"`
	InboxSize         int           `json:"inboxSize" mapstructure:"inboxSize"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds in-memory SQLite dump settings.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the session recording backend.
type StorageConfig struct {
	Type          string       `json:"type" mapstructure:"type"`
	SnapshotEvery int          `json:"snapshotEvery" mapstructure:"snapshotEvery"`
	Memory        MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// OTelConfig holds OpenTelemetry export settings.
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB telemetry settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// MonitorConfig holds the status monitor settings.
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// APIConfig holds the recording upload endpoint.
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// setDefaults registers every default on v. Tuning values match the reference car.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "./tandemlogs")

	v.SetDefault("peer.name", "")
	v.SetDefault("peer.sessionName", "Coop Drive")
	v.SetDefault("peer.tag", "coop")
	v.SetDefault("peer.coopNetwork", true)
	v.SetDefault("peer.authorityControlsRight", true)
	v.SetDefault("peer.physicsStep", "10ms")
	v.SetDefault("peer.maxFrameTime", "33ms")
	v.SetDefault("peer.updateRate", 120)
	v.SetDefault("peer.sendRate", 200)

	v.SetDefault("steering.maxSteerAngle", 25.0)
	v.SetDefault("steering.steerSlewRate", 180.0)
	v.SetDefault("steering.maxStepPerTick", 0.0)
	v.SetDefault("steering.arcadeSteering", true)
	v.SetDefault("steering.arcadeSteerSnapSpeed", 720.0)
	v.SetDefault("steering.arcadeSteerBoost", 1.15)
	v.SetDefault("steering.speedSensitive", true)
	v.SetDefault("steering.reduceStartKmh", 30.0)
	v.SetDefault("steering.reduceEndKmh", 100.0)
	v.SetDefault("steering.minSteerFactor", 0.35)
	v.SetDefault("steering.sendInterval", "50ms")
	v.SetDefault("steering.sendMinDelta", 1.0)
	v.SetDefault("steering.toeThreshold", 3.0)

	v.SetDefault("dynamics.massKg", 1600.0)
	v.SetDefault("dynamics.targetSpeedKmh", 30.0)
	v.SetDefault("dynamics.maxMotorTorque", 300.0)
	v.SetDefault("dynamics.maxBrakeTorque", 2500.0)
	v.SetDefault("dynamics.cruiseKp", 200.0)
	v.SetDefault("dynamics.speedDeadzone", 0.3)
	v.SetDefault("dynamics.driveRearWheels", true)
	v.SetDefault("dynamics.driveFrontWheels", false)
	v.SetDefault("dynamics.arcadeAcceleration", true)
	v.SetDefault("dynamics.accelMode", "forceBoost")
	v.SetDefault("dynamics.fullThrottleUntilPercent", 0.94)
	v.SetDefault("dynamics.arcadeTorqueMultiplier", 1.5)
	v.SetDefault("dynamics.arcadeExtraAcceleration", 35.0)
	v.SetDefault("dynamics.snapAccelPerSecond", 60.0)
	v.SetDefault("dynamics.arcadeBraking", true)
	v.SetDefault("dynamics.arcadeBrakeMultiplier", 2.0)
	v.SetDefault("dynamics.brakeExtraDecel", 50.0)
	v.SetDefault("dynamics.snapBrakePerSecond", 80.0)
	v.SetDefault("dynamics.autoReverseOnToeIn", true)
	v.SetDefault("dynamics.reverseTargetSpeedKmh", 10.0)
	v.SetDefault("dynamics.reverseTorqueMultiplier", 1.2)
	v.SetDefault("dynamics.reverseEnableSpeedThreshold", 1.0)
	v.SetDefault("dynamics.arcadeReverseUseSameMode", true)
	v.SetDefault("dynamics.reverseExtraAcceleration", 35.0)
	v.SetDefault("dynamics.reverseSnapPerSecond", 60.0)
	v.SetDefault("dynamics.reverseFullThrottleUntilPercent", 0.94)
	v.SetDefault("dynamics.yawAssist", true)
	v.SetDefault("dynamics.yawAssistStrength", 4.0)
	v.SetDefault("dynamics.yawAssistMaxAtKmh", 60.0)
	v.SetDefault("dynamics.enhancedHandling", false)
	v.SetDefault("dynamics.lateralGripPerSecond", 8.0)
	v.SetDefault("dynamics.useAntiRoll", true)
	v.SetDefault("dynamics.antiRollFront", 6000.0)
	v.SetDefault("dynamics.antiRollRear", 6000.0)
	v.SetDefault("dynamics.useDownforce", true)
	v.SetDefault("dynamics.downforcePerKmh", 15.0)
	v.SetDefault("dynamics.useRollDamping", true)
	v.SetDefault("dynamics.rollDamping", 4.0)

	v.SetDefault("nitro.enabled", true)
	v.SetDefault("nitro.extraKmh", 15.0)
	v.SetDefault("nitro.startAmount", 1.0)
	v.SetDefault("nitro.drainPerSecond", 0.25)
	v.SetDefault("nitro.regenPerSecond", 0.05)
	v.SetDefault("nitro.targetLerpSpeed", 20.0)

	v.SetDefault("replication.backTimeBase", 0.04)
	v.SetDefault("replication.rttFactor", 0.3)
	v.SetDefault("replication.jitterBuffer", 0.01)
	v.SetDefault("replication.adaptiveJitterScale", 2.0)
	v.SetDefault("replication.maxAdaptiveJitter", 0.05)
	v.SetDefault("replication.minBackTime", 0.02)
	v.SetDefault("replication.maxBackTime", 0.3)
	v.SetDefault("replication.arrivalSmoothing", 0.1)
	v.SetDefault("replication.maxSnapshots", 64)
	v.SetDefault("replication.maxHorizon", 1.0)
	v.SetDefault("replication.extrapolationLimit", 0.25)
	v.SetDefault("replication.extrapolationPolicy", "freeze")
	v.SetDefault("replication.snapDistance", 4.0)
	v.SetDefault("replication.snapAngle", 45.0)
	v.SetDefault("replication.smoothing", "exponential")
	v.SetDefault("replication.smoothingRate", 15.0)
	v.SetDefault("replication.maxStepPerTick", 1.0)
	v.SetDefault("replication.velocitySmoothing", 10.0)

	v.SetDefault("net.transport", "websocket")
	v.SetDefault("net.relayUrl", "ws://localhost:8750/ws")
	v.SetDefault("net.listenAddr", ":8750")
	v.SetDefault("net.secret", "")
	v.SetDefault("net.pingInterval", "1s")
	v.SetDefault("net.writeWait", "10s")
	v.SetDefault("net.maxReconnect", 10)
	v.SetDefault("net.maxBackoff", "30s")
	v.SetDefault("net.compressSnapshots", true)
	v.SetDefault("net.inboxSize", 1024)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.snapshotEvery", 10)
	v.SetDefault("storage.memory.outputDir", "./recordings")
	v.SetDefault("storage.memory.compressOutput", true)
	v.SetDefault("storage.sqlite.dumpInterval", "3m")
	v.SetDefault("storage.sqlite.dumpPath", "")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.username", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.database", "tandem")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.serviceName", "tandem")
	v.SetDefault("otel.batchTimeout", "5s")
	v.SetDefault("otel.metricInterval", "10s")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", true)

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.host", "localhost")
	v.SetDefault("influx.port", "8086")
	v.SetDefault("influx.protocol", "http")
	v.SetDefault("influx.token", "supersecrettoken")
	v.SetDefault("influx.org", "tandem-metrics")

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", "1s")
	v.SetDefault("monitor.statusFile", "status.json")

	v.SetDefault("api.serverUrl", "http://localhost:5000")
	v.SetDefault("api.apiKey", "")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Environment
// variables prefixed TANDEM_ override file values (TANDEM_NET_SECRET).
func Load(configDir string) error {
	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("TANDEM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// Get decodes the whole configuration tree from the global viper instance.
func Get() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

// Defaults returns the configuration with every default applied and no file read.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// defaults are static; a decode failure is a programming error
		panic(fmt.Errorf("decoding defaults: %w", err))
	}
	return cfg
}

// GetSteeringConfig returns the steering section.
func GetSteeringConfig() SteeringConfig { return mustGet().Steering }

// GetDynamicsConfig returns the dynamics section.
func GetDynamicsConfig() DynamicsConfig { return mustGet().Dynamics }

// GetNitroConfig returns the nitro section.
func GetNitroConfig() NitroConfig { return mustGet().Nitro }

// GetReplicationConfig returns the replication section.
func GetReplicationConfig() ReplicationConfig { return mustGet().Replication }

// GetNetConfig returns the transport section.
func GetNetConfig() NetConfig { return mustGet().Net }

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig { return mustGet().Storage }

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig { return mustGet().OTel }

// mustGet falls back to defaults when the loaded tree cannot be decoded.
func mustGet() Config {
	cfg, err := Get()
	if err != nil {
		return Defaults()
	}
	return cfg
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
