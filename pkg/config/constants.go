package config

const (
	EnvPrefix = "mealkit"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MEALKIT_DB_DSN"
	EnvDBHost = "MEALKIT_DB_HOST"
	EnvDBUser = "MEALKIT_DB_USER"
	EnvDBName = "MEALKIT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
