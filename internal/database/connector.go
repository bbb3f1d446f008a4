package database

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"questrail.io/questrail/internal/config"
	"questrail.io/questrail/pkg/log"
)

var (
	Postgres *gorm.DB
)

func Init(conf *config.DBCredential) {
	cli, err := gorm.Open(postgres.Open(conf.Dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		log.Fatalf("connect to pg:%v", err)
	}
	Postgres = cli

	db, err := cli.DB()
	if err != nil {
		log.Fatalf("get pg conn:%v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("ping to pg:%v", err)
	}
	log.Info("Connected to postgres...")

	err = Postgres.AutoMigrate(
		&User{},
		&Quest{},
		&PromoCode{},
		&QuestProgress{},
		&Point{},
		&PointPhoto{},
		&PointAudio{},
		&PointVideo{},
		&Route{},
		&RoutePoint{},
		&InboundEvent{},
	)
	if err != nil {
		log.Fatalf("autoMigrate tables:%v", err)
	}
}

func Close(ctx context.Context) {
	if Postgres == nil {
		return
	}
	db, err := Postgres.DB()
	if err != nil {
		log.Errorf("get pg conn on close:%v", err)
		return
	}
	if err := db.Close(); err != nil {
		log.Errorf("close pg conn:%v", err)
	}
}
