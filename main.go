package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/cogniloop/cogniloop-auth/auth"
	"github.com/cogniloop/cogniloop-auth/emailer"
	"github.com/cogniloop/cogniloop-auth/handler"
	"github.com/cogniloop/cogniloop-auth/limiter"
	"github.com/cogniloop/cogniloop-auth/router"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/store/jsondb"
	"github.com/cogniloop/cogniloop-auth/store/memdb"
	"github.com/cogniloop/cogniloop-auth/store/mysqldb"
	"github.com/cogniloop/cogniloop-auth/telemetry"
	"github.com/cogniloop/cogniloop-auth/util"
)

var (
	// command-line banner information
	appVersion = "development"
	gitCommit  = "N/A"
	gitRef     = "N/A"
	buildTime  = time.Now().UTC().Format("01-02-2006 15:04:05")
)

const shutdownTimeout = 10 * time.Second

type config struct {
	bindAddress        string
	logLevel           string
	secretKey          string
	sessionSecret      string
	accessTokenExpire  int
	resetTokenExpire   int
	projectName        string
	serviceName        string
	frontendHost       string
	database           string
	dbPath             string
	mysqlHost          string
	mysqlPort          int
	mysqlUser          string
	mysqlPassword      string
	mysqlDatabase      string
	mysqlTLS           string
	sendgridApiKey     string
	smtpHost           string
	smtpPort           int
	smtpUser           string
	smtpPassword       string
	smtpAuthType       string
	smtpEncryption     string
	smtpNoTLSCheck     bool
	emailFrom          string
	emailFromName      string
	loginRateLimit     string
	rateLimitStorage   string
	rateLimitPerSecond float64
	rateLimitBurst     int
}

// parseConfig reads command-line flags, falling back to env variables
func parseConfig() config {
	// a missing .env file is fine, variables may come from the environment
	_ = godotenv.Load()

	var cfg config
	flag.StringVar(&cfg.bindAddress, "bind-address", util.LookupEnvOrString(util.BindAddressEnvVar, util.DefaultBindAddress), "Address:Port to which the app will be bound.")
	flag.StringVar(&cfg.logLevel, "log-level", util.LookupEnvOrString(util.LogLevel, "INFO"), "Log level: DEBUG, INFO, WARN, ERROR or OFF.")
	flag.StringVar(&cfg.secretKey, "secret-key", util.LookupEnvOrString(util.SecretKeyEnvVar, ""), "The key used to sign access and reset tokens.")
	flag.StringVar(&cfg.sessionSecret, "session-secret", util.LookupEnvOrString(util.SessionSecretEnvVar, ""), "The key used to encrypt session cookies. Sessions are disabled when empty.")
	flag.IntVar(&cfg.accessTokenExpire, "access-token-expire-minutes", util.LookupEnvOrInt(util.AccessTokenExpireMinutesEnvVar, util.DefaultAccessTokenExpireMinutes), "Access token lifetime in minutes.")
	flag.IntVar(&cfg.resetTokenExpire, "reset-token-expire-hours", util.LookupEnvOrInt(util.ResetTokenExpireHoursEnvVar, util.DefaultResetTokenExpireHours), "Password reset token lifetime in hours.")
	flag.StringVar(&cfg.projectName, "project-name", util.LookupEnvOrString(util.ProjectNameEnvVar, util.DefaultProjectName), "Project name used in emails.")
	flag.StringVar(&cfg.serviceName, "service-name", util.LookupEnvOrString(util.ServiceNameEnvVar, util.DefaultServiceName), "Service name reported by /health.")
	flag.StringVar(&cfg.frontendHost, "frontend-host", util.LookupEnvOrString(util.FrontendHostEnvVar, util.DefaultFrontendHost), "Frontend base url used in reset links.")
	flag.StringVar(&cfg.database, "database", util.LookupEnvOrString(util.DatabaseEnvVar, util.DefaultDatabase), "Store backend: jsondb, mysql or memory.")
	flag.StringVar(&cfg.dbPath, "db-path", util.LookupEnvOrString(util.DBPathEnvVar, util.DefaultDBPath), "Directory of the json database.")
	flag.StringVar(&cfg.mysqlHost, "mysql-host", util.LookupEnvOrString(util.MysqlHostEnvVar, "127.0.0.1"), "MySQL host.")
	flag.IntVar(&cfg.mysqlPort, "mysql-port", util.LookupEnvOrInt(util.MysqlPortEnvVar, util.DefaultMysqlPort), "MySQL port.")
	flag.StringVar(&cfg.mysqlUser, "mysql-user", util.LookupEnvOrString(util.MysqlUserEnvVar, ""), "MySQL user.")
	flag.StringVar(&cfg.mysqlPassword, "mysql-password", util.LookupEnvOrString(util.MysqlPasswordEnvVar, ""), "MySQL password.")
	flag.StringVar(&cfg.mysqlDatabase, "mysql-database", util.LookupEnvOrString(util.MysqlDatabaseEnvVar, "cogniloop"), "MySQL database name.")
	flag.StringVar(&cfg.mysqlTLS, "mysql-tls", util.LookupEnvOrString(util.MysqlTLSEnvVar, "false"), "MySQL tls parameter.")
	flag.StringVar(&cfg.sendgridApiKey, "sendgrid-api-key", util.LookupEnvOrString(util.SendgridApiKeyEnvVar, ""), "Your sendgrid api key.")
	flag.StringVar(&cfg.smtpHost, "smtp-host", util.LookupEnvOrString(util.SmtpHostEnvVar, ""), "SMTP hostname.")
	flag.IntVar(&cfg.smtpPort, "smtp-port", util.LookupEnvOrInt(util.SmtpPortEnvVar, util.DefaultSmtpPort), "SMTP port.")
	flag.StringVar(&cfg.smtpUser, "smtp-user", util.LookupEnvOrString(util.SmtpUserEnvVar, ""), "SMTP username.")
	flag.StringVar(&cfg.smtpPassword, "smtp-password", util.LookupEnvOrString(util.SmtpPasswordEnvVar, ""), "SMTP password.")
	flag.StringVar(&cfg.smtpAuthType, "smtp-auth-type", util.LookupEnvOrString(util.SmtpAuthTypeEnvVar, "LOGIN"), "SMTP auth type: PLAIN, LOGIN, CRAM-MD5 or NONE.")
	flag.StringVar(&cfg.smtpEncryption, "smtp-encryption", util.LookupEnvOrString(util.SmtpEncryptionEnvVar, "STARTTLS"), "SMTP encryption: NONE, SSL, SSLTLS, TLS or STARTTLS.")
	flag.BoolVar(&cfg.smtpNoTLSCheck, "smtp-no-tls-check", util.LookupEnvOrBool(util.SmtpNoTLSCheckEnvVar, false), "Disable SMTP TLS certificate validation.")
	flag.StringVar(&cfg.emailFrom, "email-from", util.LookupEnvOrString(util.EmailFromEnvVar, ""), "'From' email address.")
	flag.StringVar(&cfg.emailFromName, "email-from-name", util.LookupEnvOrString(util.EmailFromNameEnvVar, util.DefaultEmailFromName), "'From' email name.")
	flag.StringVar(&cfg.loginRateLimit, "login-rate-limit", util.LookupEnvOrString(util.LoginRateLimitEnvVar, util.DefaultLoginRateLimit), "Login attempts allowed per username, e.g. 5/minute.")
	flag.StringVar(&cfg.rateLimitStorage, "rate-limit-storage", util.LookupEnvOrString(util.RateLimitStorageEnvVar, util.DefaultRateLimitStorage), "Login limiter storage: memory:// or a redis url.")
	flag.Float64Var(&cfg.rateLimitPerSecond, "rate-limit-per-second", util.LookupEnvOrFloat(util.RateLimitPerSecondEnvVar, 0), "Requests per second allowed per client ip, 0 disables it.")
	flag.IntVar(&cfg.rateLimitBurst, "rate-limit-burst", util.LookupEnvOrInt(util.RateLimitBurstEnvVar, 0), "Burst allowed per client ip.")
	flag.Parse()

	return cfg
}

func main() {
	cfg := parseConfig()

	lvl, err := util.ParseLogLevel(cfg.logLevel)
	if err != nil {
		log.Fatal(err)
	}

	// print app information
	if lvl <= log.INFO {
		fmt.Println("Cogniloop Auth")
		fmt.Println("App Version\t:", appVersion)
		fmt.Println("Git Commit\t:", gitCommit)
		fmt.Println("Git Ref\t\t:", gitRef)
		fmt.Println("Build Time\t:", buildTime)
		fmt.Println("Bind address\t:", cfg.bindAddress)
		fmt.Println("Database\t:", cfg.database)
		fmt.Println("Email from\t:", cfg.emailFrom)
		fmt.Println("Email from name\t:", cfg.emailFromName)
	}

	if cfg.secretKey == "" {
		log.Fatal("SECRET_KEY is required")
	}

	db, err := newStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Init(); err != nil {
		log.Fatal("Cannot init database: ", err)
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.secretKey), time.Duration(cfg.accessTokenExpire)*time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	resets, err := auth.NewResetTokens(db, []byte(cfg.secretKey), time.Duration(cfg.resetTokenExpire)*time.Hour)
	if err != nil {
		log.Fatal(err)
	}
	tmpl, err := emailer.NewResetPasswordTemplate(cfg.projectName, cfg.frontendHost, resets.Expiry())
	if err != nil {
		log.Fatal(err)
	}

	rule, err := limiter.ParseRule(cfg.loginRateLimit)
	if err != nil {
		log.Fatal(err)
	}
	limiterStorage, err := limiter.NewStorage(cfg.rateLimitStorage)
	if err != nil {
		log.Fatal(err)
	}
	loginLimiter := limiter.New(limiterStorage, rule, "login:")
	log.Infof("Login attempts limited to %s per username", loginLimiter.Rule())

	app := router.New(router.Config{
		SessionSecret:      []byte(cfg.sessionSecret),
		RateLimitPerSecond: cfg.rateLimitPerSecond,
		RateLimitBurst:     cfg.rateLimitBurst,
		LogLevel:           lvl,
	})
	registerRoutes(app, routeDeps{
		db:           db,
		tokens:       tokens,
		resets:       resets,
		tmpl:         tmpl,
		mailer:       newMailer(cfg),
		loginLimiter: loginLimiter,
		serviceName:  cfg.serviceName,
	})

	shutdownTracing := telemetry.Setup(cfg.serviceName)
	server := &http.Server{
		Addr:              cfg.bindAddress,
		Handler:           telemetry.Handler(app, cfg.serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Listening on %s", cfg.bindAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Cannot start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown: ", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Error("Tracer shutdown: ", err)
	}
	if closer, ok := limiterStorage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Error("Limiter storage shutdown: ", err)
		}
	}
}

type routeDeps struct {
	db           store.IStore
	tokens       *auth.TokenIssuer
	resets       *auth.ResetTokens
	tmpl         *emailer.ResetPasswordTemplate
	mailer       emailer.Emailer
	loginLimiter *limiter.Limiter
	serviceName  string
}

func registerRoutes(app *echo.Echo, deps routeDeps) {
	currentUser := handler.CurrentUser(deps.db, deps.tokens)

	app.GET("/health", handler.Health(deps.serviceName))
	app.POST("/login/access-token", handler.LoginAccessToken(deps.db, deps.tokens, deps.loginLimiter), handler.ContentTypeForm)
	app.POST("/login/test-token", handler.TestToken(), currentUser)
	app.POST("/password-recovery/:email", handler.RecoverPassword(deps.db, deps.resets, deps.tmpl, deps.mailer))
	app.POST("/reset-password", handler.ResetPassword(deps.db, deps.resets), handler.ContentTypeJson)
	app.POST("/password-recovery-html-content/:email", handler.RecoverPasswordHTMLContent(deps.db, deps.resets, deps.tmpl), currentUser, handler.RequireSuperuser)
}

func newStore(cfg config) (store.IStore, error) {
	switch cfg.database {
	case "jsondb":
		return jsondb.New(cfg.dbPath)
	case "mysql":
		return mysqldb.New(cfg.mysqlUser, cfg.mysqlPassword, cfg.mysqlHost, cfg.mysqlPort, cfg.mysqlDatabase, cfg.mysqlTLS)
	case "memory":
		log.Warn("Using the in-memory store, data is lost on restart")
		return memdb.New(true), nil
	default:
		return nil, fmt.Errorf("unsupported database %q", cfg.database)
	}
}

// newMailer prefers SendGrid, then SMTP. Without either, emails are only logged.
func newMailer(cfg config) emailer.Emailer {
	switch {
	case cfg.sendgridApiKey != "":
		return emailer.NewSendgridApiMail(cfg.sendgridApiKey, cfg.emailFromName, cfg.emailFrom)
	case cfg.smtpHost != "":
		return emailer.NewSmtpMail(emailer.SmtpConfig{
			Hostname:   cfg.smtpHost,
			Port:       cfg.smtpPort,
			Username:   cfg.smtpUser,
			Password:   cfg.smtpPassword,
			AuthType:   cfg.smtpAuthType,
			Encryption: cfg.smtpEncryption,
			NoTLSCheck: cfg.smtpNoTLSCheck,
			FromName:   cfg.emailFromName,
			From:       cfg.emailFrom,
		})
	default:
		log.Warn("No SMTP host or SendGrid key configured, emails are disabled")
		return emailer.NewDisabledMail()
	}
}
