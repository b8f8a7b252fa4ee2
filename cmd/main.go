package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/chatwire/chat-service/internal/auth"
	"github.com/chatwire/chat-service/internal/blob"
	"github.com/chatwire/chat-service/internal/crypt"
	"github.com/chatwire/chat-service/internal/server"
	storage "github.com/chatwire/chat-service/internal/storages"
	usecase "github.com/chatwire/chat-service/internal/usecases"
	"github.com/chatwire/chat-service/internal/ws"
)

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint: true,
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Infof("specified %s log level", logLevel.String())
	}

	return logger
}

func initDB(dsn string, logger *logrus.Logger) *sqlx.DB {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		logger.Fatalf("can't connect to database: %s", err.Error())
	}

	err = db.Ping()

	if err != nil {
		logger.Fatalf("database ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to database")
	return db
}

func main() {
	viper.AutomaticEnv()

	var host string
	var port int
	var logLevel string

	flag.IntVar(&port, "port", 80, "port on which server will be started")
	flag.StringVar(&host, "host", "0.0.0.0", "host on which server will be started")
	flag.StringVar(&logLevel, "log", "info", "log level")

	flag.Parse()

	logger := initLogger(logLevel)

	db := initDB(viper.GetString("DB_DSN"), logger)
	defer func(db *sqlx.DB) {
		err := db.Close()
		if err != nil {
			logger.Fatalf("during db connection close an error occurred: %s", err.Error())
		}
	}(db)

	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET environment variable must be defined")
	}

	encryptionSecret := viper.GetString("ENCRYPTION_SECRET")
	if encryptionSecret == "" {
		logger.Fatal("ENCRYPTION_SECRET environment variable must be defined")
	}

	uploadDir := viper.GetString("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	uploadBase := viper.GetString("UPLOAD_BASE_URL")
	if uploadBase == "" {
		uploadBase = "/files"
	}

	registry := storage.NewRegistry(db)
	verifier := auth.NewVerifier(jwtSecret, 24*time.Hour)
	codec := crypt.NewCodec(encryptionSecret)

	blobs, err := blob.NewDiskStore(uploadDir, uploadBase)
	if err != nil {
		logger.Fatalf("can't init blob store: %s", err.Error())
	}

	chatsUsecase := usecase.NewChatsUsecase(registry, codec)
	authUsecase := usecase.NewAuthUsecase(registry, verifier)
	groupsUsecase := usecase.NewGroupsUsecase(registry)

	validate := validator.New()

	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, chatsUsecase, registry, verifier, logger)

	router := server.NewRouter(
		server.NewAuthHandler(authUsecase, validate, logger),
		server.NewChatsHandler(chatsUsecase, blobs, hub, validate, logger),
		server.NewGroupsHandler(groupsUsecase, validate, logger),
		gateway,
		verifier,
		uploadDir,
		uploadBase,
		logger,
	)

	address := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:    address,
		Handler: router,
	}

	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		sig := <-osSignal
		logger.Infof("%s caught. Gracefully shutdown", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("shutdown failed: %s", err.Error())
		}
	}()

	logger.Infof("start listening on %s", address)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http serving error: %s", err.Error())
	}
}
