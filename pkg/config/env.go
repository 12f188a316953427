package config

const (
	EnvPrefix = "POS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "POS_APP_ENV"
	EnvPort     = "POS_APP_PORT"
	EnvLogLevel = "POS_LOG_LEVEL"
	EnvTimezone = "POS_TIMEZONE"

	EnvDBDSN    = "POS_DB_DSN"
	EnvDBDriver = "POS_DB_DRIVER"
	EnvDBHost   = "POS_DB_HOST"
	EnvDBUser   = "POS_DB_USER"
	EnvDBName   = "POS_DB_NAME"

	EnvRedisURL = "POS_REDIS_URL"

	EnvCartTTL          = "POS_CART_TTL"
	EnvSalesCollection  = "POS_SALES_COLLECTION"
	EnvCORSOrigins      = "POS_CORS_ALLOWED_ORIGINS"
	EnvGCPProjectID     = "POS_GCP_PROJECT_ID"
	EnvPubSubSalesTopic = "POS_PUBSUB_SALES_TOPIC"
	EnvOutboxLockTTL    = "POS_OUTBOX_LOCK_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
