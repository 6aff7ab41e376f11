package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the process-wide configuration, read-only after init.
var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	OTPConfig struct {
		ExpirationDelta time.Duration
		MaxAttempts     int
		Digits          int
	}

	DatabaseConfig struct {
		Host       string
		Port       int
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		Build            string
		SecretKey        []byte
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		OTP      OTPConfig
		Database DatabaseConfig
	}
)

// Address returns the database host:port pair.
func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func init() {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Forward Africa")
	v.SetDefault("secretKey", "w3+0q(r5@y^_hc#pz8f!ju4xln$b*ke6&vd9s7%gm2ta1oi)")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@forwardafrica.localhost")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("otp.expirationDelta", 600*time.Second)
	v.SetDefault("otp.maxAttempts", 5)
	v.SetDefault("otp.digits", 6)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "forwardafrica")
	v.SetDefault("database.name", "forwardafrica")
	v.SetDefault("database.disableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Build:            v.GetString("build"),
		SecretKey:        []byte(v.GetString("secretKey")),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		OTP: OTPConfig{
			ExpirationDelta: v.GetDuration("otp.expirationDelta"),
			MaxAttempts:     v.GetInt("otp.maxAttempts"),
			Digits:          v.GetInt("otp.digits"),
		},
		Database: DatabaseConfig{
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			Name:       v.GetString("database.name"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
	}
}
