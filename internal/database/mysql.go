package database

import (
	"errors"
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func mysqlDialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := mysqlDSN(cfg)
	if err != nil {
		return nil, err
	}
	return mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 255}), nil
}

// mysqlDSN always parses DATETIME columns into UTC time.Time values.
func mysqlDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := mysqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(orDefault(cfg.Host, "127.0.0.1"), strconv.Itoa(port))
	c.DBName = cfg.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		c.Params[key] = value
	}
	return c.FormatDSN(), nil
}
