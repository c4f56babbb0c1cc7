package config

const (
	EnvPrefix = "ZEDPOS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ZEDPOS_DB_DSN"
	EnvDBHost = "ZEDPOS_DB_HOST"
	EnvDBUser = "ZEDPOS_DB_USER"
	EnvDBName = "ZEDPOS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
