package config

var AppVersion = "DEVELOPMENT"

const (
	AppName         = "zaparoo-rig"
	LogFile         = "rig.log"
	LogsDir         = "logs"
	CfgFile         = "config.toml"
	DefaultCacheDir = "/var/cache/zaparoo-rig"
)
