package config

const (
	EnvPrefix = "JEWELSTOCK"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "JEWELSTOCK_APP_ENV"
	EnvPort   = "JEWELSTOCK_APP_PORT"

	EnvDBDSN  = "JEWELSTOCK_DB_DSN"
	EnvDBHost = "JEWELSTOCK_DB_HOST"
	EnvDBUser = "JEWELSTOCK_DB_USER"
	EnvDBName = "JEWELSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
