package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EventSinkRedis  = "redis"
	EventSinkPubSub = "pubsub"
	EventSinkNone   = "none"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// knownGateways lists the payment gateway labels checkout understands.
var knownGateways = map[string]struct{}{
	"cash_on_delivery": {},
	"card":             {},
	"mobile_wallet":    {},
	"bank_transfer":    {},
}
