// shared/registry/constants.go
package registry

const (
	// RedisRegistryHashPrefix prefixes the hash holding one entry per live instance:
	// "services:<serviceType>", e.g. "services:bot-service".
	RedisRegistryHashPrefix = "services:"

	// BotServiceType is the service type the bot registers under.
	BotServiceType = "bot-service"
)
