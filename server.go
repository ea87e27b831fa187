package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"matchlink/api/middleware"
	"matchlink/api/routes"
	"matchlink/config"
	"matchlink/db"
	"matchlink/services"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	// Redis и RabbitMQ опциональны: без них счетчики и push-уведомления
	// отключаются, основные операции продолжают работать
	if err := services.InitRedis(); err != nil {
		log.Println("Warning: Redis is unavailable, counters disabled:", err)
	}
	defer services.CloseRedis()

	registry := services.NewPresenceRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.InitRabbitMQ(); err != nil {
		log.Println("Warning: RabbitMQ is unavailable, relationship pushes disabled:", err)
	} else {
		defer services.CloseRabbitMQ()
		if err := services.StartRelationshipEventConsumer(ctx, "matchlink_notifications", registry); err != nil {
			log.Println("Warning: failed to start relationship event consumer:", err)
		}
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("matchlink"))

	routes.PublicApi(router, registry)

	addr := ":8080"
	if config.AppConfig.Backend.Port != 0 {
		addr = fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	}
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
