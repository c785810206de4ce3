package introspect

import (
	"fmt"
	"net/url"
)

// Config describes how to reach the source SQL Server instance.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DbName   string
}

// DSN builds the connection string go-mssqldb expects, grounded on the
// reference stack's database.mssqlBuildDSN (database/mssql/database.go): a
// sqlserver:// URL with the database name as a query parameter.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 1433
	}
	query := url.Values{}
	query.Add("database", c.DbName)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
