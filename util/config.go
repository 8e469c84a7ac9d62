package util

// Environment variable names
const (
	BindAddressEnvVar              = "BIND_ADDRESS"
	LogLevel                       = "LOG_LEVEL"
	SecretKeyEnvVar                = "SECRET_KEY"
	SessionSecretEnvVar            = "SESSION_SECRET"
	AccessTokenExpireMinutesEnvVar = "ACCESS_TOKEN_EXPIRE_MINUTES"
	ResetTokenExpireHoursEnvVar    = "EMAIL_RESET_TOKEN_EXPIRE_HOURS"
	ProjectNameEnvVar              = "PROJECT_NAME"
	ServiceNameEnvVar              = "SERVICE_NAME"
	FrontendHostEnvVar             = "FRONTEND_HOST"
	DatabaseEnvVar                 = "DATABASE"
	DBPathEnvVar                   = "DB_PATH"
	MysqlHostEnvVar                = "MYSQL_HOST"
	MysqlPortEnvVar                = "MYSQL_PORT"
	MysqlUserEnvVar                = "MYSQL_USER"
	MysqlPasswordEnvVar            = "MYSQL_PASSWORD"
	MysqlDatabaseEnvVar            = "MYSQL_DATABASE"
	MysqlTLSEnvVar                 = "MYSQL_TLS"
	SendgridApiKeyEnvVar           = "SENDGRID_API_KEY"
	SmtpHostEnvVar                 = "SMTP_HOST"
	SmtpPortEnvVar                 = "SMTP_PORT"
	SmtpUserEnvVar                 = "SMTP_USER"
	SmtpPasswordEnvVar             = "SMTP_PASSWORD"
	SmtpAuthTypeEnvVar             = "SMTP_AUTH_TYPE"
	SmtpEncryptionEnvVar           = "SMTP_ENCRYPTION"
	SmtpNoTLSCheckEnvVar           = "SMTP_NO_TLS_CHECK"
	EmailFromEnvVar                = "EMAILS_FROM_EMAIL"
	EmailFromNameEnvVar            = "EMAILS_FROM_NAME"
	LoginRateLimitEnvVar           = "LOGIN_RATE_LIMIT"
	RateLimitStorageEnvVar         = "RATE_LIMIT_STORAGE"
	RateLimitPerSecondEnvVar       = "RATE_LIMIT_PER_SECOND"
	RateLimitBurstEnvVar           = "RATE_LIMIT_BURST"
	FirstSuperuserEnvVar           = "FIRST_SUPERUSER"
	FirstSuperuserPasswordEnvVar   = "FIRST_SUPERUSER_PASSWORD"
)

// Defaults
const (
	DefaultBindAddress              = "0.0.0.0:8000"
	DefaultAccessTokenExpireMinutes = 60 * 24 * 8
	DefaultResetTokenExpireHours    = 48
	DefaultProjectName              = "Cogniloop"
	DefaultServiceName              = "cogniloop-api"
	DefaultFrontendHost             = "http://localhost:5173"
	DefaultDatabase                 = "jsondb"
	DefaultDBPath                   = "./db"
	DefaultMysqlPort                = 3306
	DefaultSmtpPort                 = 587
	DefaultEmailFromName            = "Cogniloop"
	DefaultLoginRateLimit           = "5/minute"
	DefaultRateLimitStorage         = "memory://"
	DefaultFirstSuperuser           = "admin@example.com"
	DefaultFirstSuperuserPassword   = "changethis"
)
