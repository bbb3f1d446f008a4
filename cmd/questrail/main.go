package main

import (
	"context"

	"questrail.io/questrail/internal/blob"
	"questrail.io/questrail/internal/cache"
	"questrail.io/questrail/internal/chat"
	"questrail.io/questrail/internal/config"
	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/internal/databus"
	"questrail.io/questrail/internal/http"
	"questrail.io/questrail/internal/notify"
	"questrail.io/questrail/internal/reward"
	"questrail.io/questrail/internal/starter"
	"questrail.io/questrail/internal/telegram"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

func main() {
	log.Infof("Starting app")
	startApp()
}

func startApp() {
	defer func() {
		if i := recover(); i != nil {
			log.Fatal(errors.ErrorfAndReport("%v", i))
		}
	}()
	log.SetLevel(0)
	config.Read()
	if config.Global.SentryDSN != "" {
		errors.NewSentryReporter(config.Global.SentryDSN)
	}
	blob.Init(config.Global.AwsS3.Bucket.Name, config.Global.AwsS3.Bucket.Region)
	ctx := context.Background()
	database.Init(&config.Global.Postgres)
	defer database.Close(ctx)
	cache.Init(&config.Global.RedisCredential)
	defer cache.Close()
	if config.Global.KafkaServer != "" {
		databus.InitDataBus(config.Global.KafkaServer)
	}

	bot, err := telegram.New(config.Global.TelegramBot.AuthToken, config.Global.TelegramBot.UpdateTimeoutSec)
	if err != nil {
		log.Fatal(err)
	}

	queueURL := config.Global.AwsS3.Queues.NotificationQueueURL
	allocator := reward.NewAllocator(reward.NewStore(), notify.NewPublisher(queueURL))
	engine := chat.NewEngine(chat.Config{
		Store:         chat.NewStore(),
		Channel:       bot,
		Media:         blob.Client,
		Blobs:         blob.Client,
		Refs:          cache.CallbackRefs{},
		Approvals:     allocator,
		AdminGroupID:  config.Global.TelegramBot.AdminGroupID,
		FeedbackDelay: config.Global.Walk.FeedbackDelay(),
	})
	dispatcher := chat.NewDispatcher(engine)

	starter.Start(ctx,
		notify.NewWorker(queueURL, bot),
	)

	go http.NewServer(config.Global.API.ListenAddr, config.Global.API.WriteToken, allocator).Run()
	bot.Run(ctx, dispatcher)
}
