package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"AProject/data/database/pg"
	"AProject/global"
	"AProject/logger"
	mid "AProject/middleware"
	midsec "AProject/middleware/security"
	"AProject/module/activity/store"
	"AProject/module/notify"
	"AProject/service/chat"
	"AProject/service/chat/handlers"
	"AProject/service/natsx"
	"AProject/service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := global.Load(*cfgPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	mgo, err := global.ConfigAll(ctx, cfg)
	cancel()
	if err != nil {
		logger.Errorf("bootstrap: %v", err)
		os.Exit(1)
	}

	gwID := "gw-" + strconv.FormatInt(cfg.Gateway.NodeID, 10)

	gateway := store.NewStore(mgo.GetDB(), pg.Pool())
	presence := storage.NewPresence(5 * time.Minute)
	reg := chat.NewRegistry()
	fanout := chat.NewFanout(cfg.Gateway.FanoutWorkers, 1024)

	var relay chat.Relay
	var natsRelay *natsx.Relay
	if cfg.Nats.Enable {
		cli, err := natsx.NewNatsxClient(natsx.Config{URL: cfg.Nats.URL, Name: gwID})
		if err != nil {
			logger.Errorf("nats connect: %v", err)
			os.Exit(1)
		}
		natsRelay = natsx.NewRelay(cli, gwID)
		relay = natsRelay
	}

	bcast := chat.NewBroadcaster(reg, fanout, relay)
	disp := chat.NewDispatcher()
	srv := chat.NewServer(gwID, chat.ServerConf{
		SendQueueSize: cfg.Gateway.SendQueueSize,
		RecentWindow:  cfg.Gateway.RecentWindow,
	}, reg, disp, bcast, gateway, presence)

	disp.Register(handlers.NewAuthHandler(srv))
	disp.Register(handlers.NewSubscribeHandler(srv))
	disp.Register(handlers.NewChatHandler(srv))

	if natsRelay != nil {
		if err := natsRelay.SubscribeRoom(bcast.BroadcastRoomLocal); err != nil {
			logger.Errorf("nats subscribe room: %v", err)
			os.Exit(1)
		}
		if err := natsRelay.SubscribeUser(bcast.NotifyUserLocal); err != nil {
			logger.Errorf("nats subscribe user: %v", err)
			os.Exit(1)
		}
		defer natsRelay.Close()
	}

	notifySvc := notify.NewService(bcast, presence)
	notifyH := notify.NewHandler(notifySvc)

	r := gin.New()
	r.Use(gin.Recovery(), mid.Origin())
	r.GET(cfg.Server.WSPath, srv.HandleWS)

	internal := r.Group("/internal", midsec.BearerAuth(cfg.GetJwtSecret()))
	notifyH.Register(internal)

	logger.Infof("gateway %s listening on %s", gwID, cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		logger.Errorf("server: %v", err)
		os.Exit(1)
	}
}
