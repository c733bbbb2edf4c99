package config

import (
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

var DB *sql.DB

// MySQLDSN returns DB_DSN when set, otherwise builds one from DB_USER,
// DB_PASSWORD, DB_HOST, DB_PORT and DB_NAME.
func MySQLDSN(loc *time.Location) string {
	if dsn := GetEnv("DB_DSN", ""); dsn != "" {
		return dsn
	}

	cfg := mysql.NewConfig()
	cfg.User = GetEnv("DB_USER", "root")
	cfg.Passwd = GetEnv("DB_PASSWORD", "")
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(GetEnv("DB_HOST", "127.0.0.1"), GetEnv("DB_PORT", "3306"))
	cfg.DBName = GetEnv("DB_NAME", "booking")
	cfg.ParseTime = true
	if loc != nil {
		cfg.Loc = loc
	}
	return cfg.FormatDSN()
}

func InitDB(loc *time.Location) {
	db, err := sql.Open("mysql", MySQLDSN(loc))
	if err != nil {
		log.Fatal().Err(err).Msg("MySQL config invalid")
	}

	db.SetMaxOpenConns(GetEnvInt("DB_MAX_OPEN", 25))
	db.SetMaxIdleConns(GetEnvInt("DB_MAX_IDLE", 10))
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("MySQL not reachable")
	}

	DB = db
	log.Info().Msg("MySQL connected")
}

func CloseDB() {
	if DB != nil {
		_ = DB.Close()
	}
}
