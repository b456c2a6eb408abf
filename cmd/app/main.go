package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/external/abstractapi"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/external/brevo"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/external/cloudinary"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/config"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/db"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/repository"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/services"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/token"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/totp"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// ======================
	// INFRA
	// ======================
	client, database, err := db.Connect(context.Background(), cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Fatal("could not connect to mongodb", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	// ======================
	// EXTERNALS
	// ======================
	var emailValidator services.EmailValidator
	if cfg.UseEmailReputation {
		emailValidator, err = abstractapi.NewAbstractReputationValidator(cfg.AbstractEmailAPIKey)
		if err != nil {
			logger.Fatal("could not build email validator", zap.Error(err))
		}
	} else {
		emailValidator = services.NewLocalValidator()
	}

	var mailer services.Mailer
	if cfg.BrevoAPIKey != "" {
		mailer, err = brevo.NewBrevoMailer(cfg.BrevoAPIKey, cfg.AdminEmailName, cfg.AdminEmailAddress)
		if err != nil {
			logger.Fatal("could not build mailer", zap.Error(err))
		}
	} else {
		mailer = services.NewLogMailer(logger)
	}

	var uploader services.Uploader
	if cfg.CloudinaryCloudName != "" {
		uploader, err = cloudinary.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Fatal("could not build uploader", zap.Error(err))
		}
	} else {
		uploader = services.NewDisabledUploader()
	}

	// ======================
	// REPOSITORIES
	// ======================
	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	// ======================
	// TOKENS / TOTP
	// ======================
	accessIssuer := token.NewIssuer(cfg.AccessTokenSecret, cfg.AccessTokenLife)
	refreshIssuer := token.NewIssuer(cfg.RefreshTokenSecret, cfg.RefreshTokenLife)
	otp := totp.NewAuthenticator(cfg.TwoFAIssuer)

	// ======================
	// SERVICES
	// ======================
	userSvc := services.NewUserService(userRepo, emailValidator, mailer, uploader, cfg.WebDomain, logger)
	authSvc := services.NewAuthService(userRepo, sessionRepo, accessIssuer, refreshIssuer, otp, logger)

	// ======================
	// ECHO
	// ======================
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	api := e.Group("/v1")

	// ======================
	// ROUTES (ONLY REGISTRATION)
	// ======================
	registerUserRoutes(api, userSvc, authSvc, accessIssuer, cfg.CookieMaxAge)

	// ======================
	// SERVER
	// ======================
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
