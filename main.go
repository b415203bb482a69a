package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ChatSync/data/mongoutil"
	"ChatSync/global"
	"ChatSync/logger"
	"ChatSync/middleware"
	"ChatSync/service/auth"
	"ChatSync/service/bus"
	"ChatSync/service/chat"
	syncsvc "ChatSync/service/sync"
	"ChatSync/store"
	storeredis "ChatSync/store/redis"
)

func main() {
	conf := global.Load()
	global.ConfigIds(conf.NodeID)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	mongoClient, err := mongoutil.NewMongoDB(ctx, conf.MongoConfig())
	cancel()
	if err != nil {
		logger.Errorf("[main] mongo connect failed: %v", err)
		os.Exit(1)
	}
	db := mongoClient.GetDB()

	if err := storeredis.InitRedis(conf.RedisConfig()); err != nil {
		// presence mirror is an optimization; the in-memory registry is
		// authoritative for this node
		logger.Warnf("[main] redis unavailable, presence mirror disabled: %v", err)
	}

	users := store.NewUserStore(db)
	convs := store.NewConversationStore(db)
	msgs := store.NewMessageStore(db)
	notifs := store.NewNotificationStore(db)
	views := store.NewViewStore(db)

	catchup := syncsvc.NewService(convs, msgs, notifs)
	identity := auth.NewIdentity(conf.JWTOptions(), users)

	gw := chat.NewGateway(chat.Config{
		NodeID:       conf.NodeID,
		PingInterval: conf.PingInterval,
		PongWait:     conf.PongWait,
		PresenceTTL:  conf.PresenceTTL,
	}, identity, users, convs, catchup, views)

	var eventBus *bus.Bus
	if conf.NatsURL != "" {
		eventBus, err = bus.Connect(bus.Config{URL: conf.NatsURL}, conf.NodeID)
		if err != nil {
			logger.Errorf("[main] nats connect failed: %v", err)
			os.Exit(1)
		}
		if err := eventBus.Start(gw.Engine().Deliver); err != nil {
			logger.Errorf("[main] nats subscribe failed: %v", err)
			os.Exit(1)
		}
		gw.Engine().SetRelay(eventBus)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", gw.HandleWS)

	authed := r.Group("/", middleware.Auth(conf.JWTOptions()))
	syncsvc.NewHTTPHandler(catchup).Register(authed)
	authed.GET("/api/presence/:userId", gw.HandlePresenceQuery)
	authed.POST("/internal/publish", gw.HandlePublish)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"node": conf.NodeID, "online": len(gw.Presence().OnlineUsers())})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: r,
	}

	go func() {
		logger.Infof("[main] node=%s listening on %s", conf.NodeID, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] server stopped: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("[main] shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	gw.Close()
	if eventBus != nil {
		eventBus.Close()
	}
}
