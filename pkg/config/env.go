package config

// EnvPrefix is the envconfig prefix for all service configuration.
const EnvPrefix = "LAVIFY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "LAVIFY_DB_DSN"
	EnvDBHost = "LAVIFY_DB_HOST"
	EnvDBUser = "LAVIFY_DB_USER"
	EnvDBName = "LAVIFY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
