package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	// SMSConfig configures the SMS gateway. The SMS channel is disabled
	// entirely unless AccountID, AuthToken and FromNumber are all set.
	SMSConfig struct {
		BaseURL     string
		AccountID   string
		AuthToken   string
		FromNumber  string
		SendTimeout time.Duration
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string

		SecretKey                 string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration

		DefaultFromEmail mail.Address
		SendgridApiKey   string
		MailSendTimeout  time.Duration

		RollbarToken string

		LeaderboardRefreshSpec string

		ResponseRateLimit      float64 // req/s per IP on the public response endpoint
		ResponseRateLimitBurst int

		Server   ServerConfig
		Database DatabaseConfig
		SMS      SMSConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c SMSConfig) Enabled() bool {
	return c.AccountID != "" && c.AuthToken != "" && c.FromNumber != ""
}

func (c Config) MailEnabled() bool {
	return c.SendgridApiKey != ""
}

func init() {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Lifeline")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "wm2+x3m$h)a9#5y&2l8^s1(dnq05*c7=_e4f!ujro6bzg-kvpt")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("mailSendTimeout", 15*time.Second)
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("leaderboardRefreshSpec", "@every 10m")
	conf.SetDefault("responseRateLimit", 5.0)
	conf.SetDefault("responseRateLimitBurst", 10)

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":8000")
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "lifeline")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("sms.baseURL", "https://api.twilio.com")
	conf.SetDefault("sms.sendTimeout", 15*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	Conf = &Config{
		Env:      env,
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		AppName:  conf.GetString("appName"),
		Build:    conf.GetString("build"),

		SecretKey:                 conf.GetString("secretKey"),
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),

		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("appName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		SendgridApiKey:  conf.GetString("sendgridApiKey"),
		MailSendTimeout: conf.GetDuration("mailSendTimeout"),

		RollbarToken: conf.GetString("rollbarToken"),

		LeaderboardRefreshSpec: conf.GetString("leaderboardRefreshSpec"),

		ResponseRateLimit:      conf.GetFloat64("responseRateLimit"),
		ResponseRateLimitBurst: conf.GetInt("responseRateLimitBurst"),

		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Addr:                      conf.GetString("server.addr"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		SMS: SMSConfig{
			BaseURL:     conf.GetString("sms.baseURL"),
			AccountID:   conf.GetString("sms.accountID"),
			AuthToken:   conf.GetString("sms.authToken"),
			FromNumber:  conf.GetString("sms.fromNumber"),
			SendTimeout: conf.GetDuration("sms.sendTimeout"),
		},
	}
}
