package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server    ServerConfig
		Storage   StorageConfig
		Database  DatabaseConfig
		Sheets    SheetsConfig
		Chat      ChatConfig
		Dashboard DashboardConfig
	}

	ServerConfig struct {
		Address            string
		DebugAddress       string
		Host               string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	StorageConfig struct {
		Engine string // postgres | memory
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SheetsConfig struct {
		StudentURL    string
		AttendanceURL string
		Timeout       time.Duration
	}

	ChatConfig struct {
		WebhookURL    string
		ScriptURL     string
		StylesheetURL string
	}

	DashboardConfig struct {
		InitialYear  int
		InitialMonth int // 0 = January
	}
)

func (dbConf DatabaseConfig) Address() string {
	return net.JoinHostPort(dbConf.Host, dbConf.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Preschool Dashboard")
	v.SetDefault("secretKey", "x7c!w2p0-9mz&q#u4kt8$fj3nv_r6(ey1hdo5^sbg)la+ci")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("storage.engine", "postgres")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "preschool")
	v.SetDefault("database.user", "preschool")
	v.SetDefault("database.password", "preschool")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("sheets.studentURL", "https://docs.google.com/spreadsheets/d/e/2PACX-1vRAiWzUf9CfGsh6kUFgrC9ZKFfaCHKebvmyRFlwanYVV0DKXdknVh-nLy7Wp30VdcN--81XKp5-8V12/pub?output=csv")
	v.SetDefault("sheets.attendanceURL", "https://docs.google.com/spreadsheets/d/e/2PACX-1vSC-kZQtaALHLu-KfIGsltaf1eELaPV40axRv-Cga6W4DHLm4xXc5cxVkL_acwcfS7K7S6Ecz9-TccQ/pub?output=csv")
	v.SetDefault("sheets.timeout", 15*time.Second)

	v.SetDefault("chat.webhookURL", "https://myaidesigntools.app.n8n.cloud/webhook/kindergarden_chatbot")
	v.SetDefault("chat.scriptURL", "https://cdn.jsdelivr.net/npm/@n8n/chat/dist/chat.bundle.es.js")
	v.SetDefault("chat.stylesheetURL", "https://cdn.jsdelivr.net/npm/@n8n/chat/dist/style.css")

	v.SetDefault("dashboard.initialYear", 2025)
	v.SetDefault("dashboard.initialMonth", 9)
}

// NewConfig loads the configuration of the current environment.
// Values are looked up in this order: env vars (prefixed by the env name, eg. `PROD_SERVER_ADDRESS`),
// then `config/.env.<env>` if it exists, then defaults.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	hostname, _ := os.Hostname()
	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			DebugAddress:       v.GetString("server.debugAddress"),
			Host:               hostname,
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Storage: StorageConfig{
			Engine: strings.ToLower(v.GetString("storage.engine")),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Sheets: SheetsConfig{
			StudentURL:    v.GetString("sheets.studentURL"),
			AttendanceURL: v.GetString("sheets.attendanceURL"),
			Timeout:       v.GetDuration("sheets.timeout"),
		},
		Chat: ChatConfig{
			WebhookURL:    v.GetString("chat.webhookURL"),
			ScriptURL:     v.GetString("chat.scriptURL"),
			StylesheetURL: v.GetString("chat.stylesheetURL"),
		},
		Dashboard: DashboardConfig{
			InitialYear:  v.GetInt("dashboard.initialYear"),
			InitialMonth: v.GetInt("dashboard.initialMonth"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory storage and debug mode.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		AppName:          "Preschool Dashboard",
		SecretKey:        "secret",
		WorkDir:          Getwd(),
		FrontendBaseURL:  "http://localhost:8000",
		defaultFromEmail: "noreply@localhost",
		Server: ServerConfig{
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Storage: StorageConfig{Engine: "memory"},
		Sheets:  SheetsConfig{Timeout: 5 * time.Second},
		Dashboard: DashboardConfig{
			InitialYear:  2025,
			InitialMonth: 9,
		},
	}
}

func (conf *Config) String() string {
	return fmt.Sprintf("%s (env=%s, build=%s, debug=%s)", conf.AppName, conf.Env, conf.Build, strconv.FormatBool(conf.Debug))
}
