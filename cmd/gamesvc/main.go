package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	config "github.com/avvvet/bingo-rooms/configs"
	"github.com/avvvet/bingo-rooms/internal/auth"
	"github.com/avvvet/bingo-rooms/internal/comm"
	mongodb "github.com/avvvet/bingo-rooms/internal/db"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/broker"
	gameconfig "github.com/avvvet/bingo-rooms/internal/gamesvc/config"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/db"
	handlers "github.com/avvvet/bingo-rooms/internal/gamesvc/handlers"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/metrics"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/service"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/store"
	nats "github.com/avvvet/bingo-rooms/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

func init() {
	config.LoadEnv(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + config.CreateUniqueInstance(SERVICE_NAME))
}

func main() {
	cfg := config.Load("8081")
	gameCfg := gameconfig.Load()

	// finished games are archived in postgres when configured
	var (
		recorder service.GameRecorder
		archive  handlers.GameArchive
	)
	if gameCfg.PostgresURL != "" {
		dbpool, err := db.Connect(gameCfg.PostgresURL, int32(gameCfg.PostgresMaxConns))
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.ClosePool()

		gameStore := store.NewGameStore(dbpool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = gameStore.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to prepare games schema: %v", err)
		}
		recorder, archive = gameStore, gameStore
		log.Printf("pg connection established successfully")
	} else {
		log.Warn("POSTGRES_URL not set, finished games will not be archived")
	}

	// room events go to mongo when configured
	var (
		events  service.EventLogger
		history handlers.EventHistory
	)
	if gameCfg.MongoURI != "" {
		mdb, err := mongodb.ConnectToDB(gameCfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongodb.Disconnect(mdb)

		if err := mongodb.CreateTTLIndexForCollection(mdb, store.EventsCollection); err != nil {
			log.Errorf("Failed to create TTL index on %s: %v", store.EventsCollection, err)
		}
		eventStore := store.NewEventStore(mdb, gameCfg.EventTTL)
		events, history = eventStore, eventStore
		log.Printf("mongo connection established successfully")
	} else {
		log.Warn("MONGODB_URI not set, room events will not be logged")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gameService := service.NewGameService(gameCfg.MaxPlayers, recorder, events, m)

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME + "-service")
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// init peer message broker
	b := broker.NewBroker(n.Conn, gameService)

	// subscribe to socket service
	sub, err := b.SubscribeSocketService(comm.SocketSubject)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(gameService, auth.New(cfg.JWTSecret, cfg.TokenTTL))
	h.Archive = archive
	h.Events = history
	h.Notifier = b
	h.HistorySize = gameCfg.HistorySize
	h.SetRoutes(r, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		log.Errorf("Error unsubscribing from %s: %v", comm.SocketSubject, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
