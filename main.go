package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MeetChat/global"
	"MeetChat/logger"
	"MeetChat/middleware"
	"MeetChat/module/chat/api"
	chatsvc "MeetChat/module/chat/service"
	chatstore "MeetChat/module/chat/store"
	usersvc "MeetChat/module/user/service"
	gateway "MeetChat/service/chat"
	"MeetChat/service/notify"
	"MeetChat/service/queue"
	"MeetChat/service/storage"
	redissrv "MeetChat/service/storage/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := global.ConfigAll(ctx); err != nil {
		logger.Errorf("[boot] config: %v", err)
		os.Exit(1)
	}
	cfg := global.C

	pool := storage.GetPG()
	if err := chatstore.EnsureSchema(ctx, pool); err != nil {
		logger.Errorf("[boot] schema: %v", err)
		os.Exit(1)
	}
	store := chatstore.NewPG(pool)

	chatSvc := chatsvc.New(store)
	userSvc := usersvc.New(store, cfg.GatewayID)

	qc, err := queue.NewClient(queue.Config{Servers: cfg.NatsServers, Name: cfg.GatewayID})
	if err != nil {
		logger.Errorf("[boot] queue connect: %v", err)
		os.Exit(1)
	}
	defer qc.Close()

	notifier := notify.New(queue.NewProducer(qc), chatSvc)
	chatSvc.AddPostCommit(notifier.Enqueue)

	gw := gateway.NewGateway(cfg.GatewayID, cfg.JWTOptions(), chatSvc, userSvc)

	cons := queue.NewConsumer(qc, queue.IdemMiddleware(queue.NewMemIdem(10*time.Minute), 10*time.Minute))
	if err := notifier.Start(cons); err != nil {
		logger.Errorf("[boot] fanout subscribe: %v", err)
		os.Exit(1)
	}
	notify.NewRelay(func(userID string, unread int64) {
		gw.DeliverToUser(userID, gateway.BuildNotification(unread))
	}).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Origin(cfg.AllowedOrigins))

	r.GET("/ws/chat/:userID", gw.HandleWS)
	chatGroup := r.Group("/chat", middleware.Auth(cfg.JWTOptions()))
	api.New(chatSvc, userSvc, func(userID string) {
		gw.DeliverToUser(userID, gateway.BuildNotification(0))
	}).Register(chatGroup)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("[boot] gateway %s listening on %s", cfg.GatewayID, cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[boot] http: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("[boot] shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warnf("[boot] http shutdown: %v", err)
	}
	storage.ClosePG()
	_ = redissrv.CloseRedis()
}
