package main

import (
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"NewsWire/global"
	"NewsWire/logger"
	mid "NewsWire/middleware"
	msghttp "NewsWire/module/message"
	"NewsWire/service/chat"
	"NewsWire/service/chat/handlers"
	"NewsWire/service/kafka"
	"NewsWire/service/natsx"
	"NewsWire/service/relay"
	"NewsWire/service/storage"
	rediscli "NewsWire/service/storage/redis"
	sec "NewsWire/tools/security"
	"NewsWire/tools/ids"
)

func main() {
	cfg := global.Load()
	ids.SetNodeID(int64(cfg.NodeID))

	// ---- optional collaborators, enabled by config ----

	redisEnabled := false
	if cfg.RedisAddr != "" {
		if err := rediscli.InitRedis(rediscli.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}); err != nil {
			logger.Errorf("[init] redis unavailable, mirror disabled: %v", err)
		} else {
			_ = storage.Init()
			redisEnabled = true
		}
	}

	var sink chat.Sink
	if len(cfg.KafkaBrokers) > 0 {
		if err := kafka.InitKafkaClient(kafka.Config{Brokers: cfg.KafkaBrokers}); err != nil {
			logger.Errorf("[init] kafka unavailable, sink disabled: %v", err)
		} else if err := kafka.InitSyncProducerFromClient(); err != nil {
			logger.Errorf("[init] kafka producer failed, sink disabled: %v", err)
		} else {
			sink = kafka.NewMessageSink(cfg.KafkaTopic, 2, 4096)
		}
	}

	var nm *natsx.NatsManager
	if len(cfg.NatsServers) > 0 {
		var err error
		nm, err = natsx.NewNatsManager(natsx.NatsxConfig{
			Servers: cfg.NatsServers,
			Name:    cfg.GatewayID,
		})
		if err != nil {
			logger.Errorf("[init] nats unavailable, relay disabled: %v", err)
			nm = nil
		}
	}

	// ---- assemble the core ----

	tokenOpts := sec.DefaultOptions(cfg.JWTSecret)
	opts := []chat.ServerOpt{
		chat.WithTokenCredential(func(token string) (string, error) {
			claims, err := sec.Verify(tokenOpts, token)
			if err != nil {
				return "", err
			}
			return claims.UserID(), nil
		}),
	}
	if sink != nil {
		opts = append(opts, chat.WithSink(sink))
	}
	var routerOpts []chat.RouterOpt
	if redisEnabled {
		opts = append(opts, chat.WithPresenceMirror(storage.Mirror{}))
		routerOpts = append(routerOpts, chat.WithUnreadCounter(storage.Unread{}))
	}

	var gwRelay *relay.GatewayRelay
	if nm != nil && redisEnabled {
		gwRelay = relay.New(cfg.GatewayID, nm)
		routerOpts = append(routerOpts, chat.WithRelay(func(user string) (string, bool) {
			gw, online, err := storage.PresenceLookup(user)
			if err != nil || !online {
				return "", false
			}
			return gw, true
		}, gwRelay))
	}
	if len(routerOpts) > 0 {
		opts = append(opts, chat.WithRouterOpts(routerOpts...))
	}

	srv := chat.NewServer(cfg.GatewayID, chat.ServerConf{}, opts...)
	defer srv.Close()

	srv.Disp().Register(handlers.NewMessageHandler())
	srv.Disp().Register(handlers.NewPingHandler())

	if gwRelay != nil {
		if err := gwRelay.Listen(srv.Router()); err != nil {
			logger.Errorf("[init] relay subscribe failed: %v", err)
		}
		defer func() { _ = nm.Close() }()
	}

	gw := chat.NewGateway(srv.Router())
	if redisEnabled {
		gw = gw.WithRecentLog(storage.RecentLog{})
	}

	// ---- gRPC health service for orchestration probes ----

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GrpcPort))
		if err != nil {
			logger.Errorf("[grpc] listen failed: %v", err)
			return
		}
		gs := grpc.NewServer()
		healthServer := health.NewServer()
		healthpb.RegisterHealthServer(gs, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		logger.Infof("[grpc] health listening on :%d", cfg.GrpcPort)
		if err := gs.Serve(lis); err != nil {
			logger.Errorf("[grpc] server failed: %v", err)
		}
	}()

	// ---- HTTP + WebSocket ----

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", srv.HandleWS) // ws://host/ws?userId=A  or  ?token=<jwt>

	auth := mid.RouteOpt{IsAuth: true, Secret: cfg.JWTSecret}
	open := mid.RouteOpt{}

	mid.POST(r, "/api/messages/notify", msghttp.HandlerNotify(gw), auth)
	mid.GET(r, "/api/messages/unread", msghttp.HandlerUnread(redisEnabled), auth)
	mid.GET(r, "/api/presence/:userId", msghttp.HandlerPresence(srv.Presence()), auth)
	mid.POST(r, "/api/presence/online", msghttp.HandlerPresenceBulk(srv.Presence()), auth)

	// deprecated surfaces kept so stale clients learn where to go
	mid.GET(r, "/events", msghttp.HandlerSuperseded("/ws"), open)
	mid.GET(r, "/api/messages/unread-poll", msghttp.HandlerSuperseded("/ws"), open)

	logger.Infof("[http] gateway %s listening on :%d", cfg.GatewayID, cfg.Port)
	if err := r.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Errorf("[http] server failed: %v", err)
	}
}
