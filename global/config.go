package global

import (
	"NewsWire/tools"
)

// AppConfig holds process-level settings for one gateway node. Everything is
// env-driven; features whose endpoint list is empty stay disabled.
type AppConfig struct {
	GatewayID string // unique per node, used by the presence mirror and relay
	NodeID    int    // snowflake node component, 0~1023

	Port     int // HTTP + WebSocket
	GrpcPort int // health probe

	JWTSecret []byte

	RedisAddr     string // empty => presence mirror / unread counters disabled
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string // empty => inbound persistence sink disabled
	KafkaTopic   string

	NatsServers []string // empty => cross-gateway relay disabled
}

var Global AppConfig

// Load populates Global from the environment.
func Load() AppConfig {
	Global = AppConfig{
		GatewayID: tools.GetEnv("GATEWAY_ID", "msg_gw-1"),
		NodeID:    tools.GetEnvInt("NODE_ID", 1),

		Port:     tools.GetEnvInt("PORT", 8080),
		GrpcPort: tools.GetEnvInt("GRPC_PORT", 50052),

		JWTSecret: []byte(tools.GetEnv("JWT_SECRET", "dev-only-secret")),

		RedisAddr:     tools.GetEnv("REDIS_ADDR", ""),
		RedisPassword: tools.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       tools.GetEnvInt("REDIS_DB", 0),

		KafkaBrokers: tools.GetEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   tools.GetEnv("KAFKA_TOPIC", "message_inbound"),

		NatsServers: tools.GetEnvList("NATS_SERVERS", nil),
	}
	return Global
}
