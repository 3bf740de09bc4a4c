package ruoyidb

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// Config holds the database connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Timeout  time.Duration
}

// Validate checks that the connection settings are complete.
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.NewConfigError("ruoyidb", "DB_HOST is required", errors.ErrCredentialsRequired)
	case c.User == "":
		return errors.NewConfigError("ruoyidb", "DB_USER is required", errors.ErrCredentialsRequired)
	case c.Name == "":
		return errors.NewConfigError("ruoyidb", "DB_NAME is required", errors.ErrCredentialsRequired)
	}
	return nil
}

// DSN renders the driver connection string. Rows-affected counts matched
// rows so an update of an unchanged row is not mistaken for a missing one.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = constants.DatabaseTimeout
	}

	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = timeout
	mc.ReadTimeout = timeout
	mc.WriteTimeout = timeout
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
