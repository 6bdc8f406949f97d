package config

const (
	EnvPrefix = "KHAJAGHAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "KHAJAGHAR_DB_DSN"
	EnvDBHost = "KHAJAGHAR_DB_HOST"
	EnvDBUser = "KHAJAGHAR_DB_USER"
	EnvDBName = "KHAJAGHAR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
