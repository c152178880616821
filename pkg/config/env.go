package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag so
// the prefix only matters for fields without one.
const EnvPrefix = "BAKERY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BAKERY_APP_ENV"
	EnvPort     = "BAKERY_APP_PORT"
	EnvLogLevel = "BAKERY_LOG_LEVEL"

	EnvCartBackend   = "BAKERY_CART_BACKEND"
	EnvCartFilePath  = "BAKERY_CART_FILE_PATH"
	EnvCartTaxRate   = "BAKERY_CART_TAX_RATE"
	EnvCartThreshold = "BAKERY_CART_FREE_SHIPPING_THRESHOLD"

	EnvRedisURL = "BAKERY_REDIS_URL"

	EnvDBDSN  = "BAKERY_DB_DSN"
	EnvDBHost = "BAKERY_DB_HOST"
	EnvDBUser = "BAKERY_DB_USER"
	EnvDBName = "BAKERY_DB_NAME"
)
