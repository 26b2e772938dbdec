package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointDSN(t *testing.T) {
	ep := Endpoint{
		Host:     "db.internal",
		Port:     3307,
		User:     "sync",
		Password: "p@ss:word",
		Database: "shop",
		Params:   map[string]string{"charset": "utf8mb4"},
	}

	cfg, err := mysql.ParseDSN(ep.DSN())
	require.NoError(t, err)
	assert.Equal(t, "sync", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.internal:3307", cfg.Addr)
	assert.Equal(t, "shop", cfg.DBName)
	assert.Equal(t, "utf8mb4", cfg.Params["charset"])
}

func TestEndpointDefaultPort(t *testing.T) {
	ep := Endpoint{Host: "localhost", User: "root", Database: "a"}

	cfg, err := mysql.ParseDSN(ep.DSN())
	require.NoError(t, err)
	assert.Equal(t, "localhost:3306", cfg.Addr)
}

func TestEndpointStringHidesPassword(t *testing.T) {
	ep := Endpoint{Host: "localhost", Port: 3306, User: "root", Password: "secret", Database: "a"}
	assert.Equal(t, "root@localhost:3306/a", ep.String())
	assert.NotContains(t, ep.String(), "secret")
}

func TestDescribeAddsHints(t *testing.T) {
	err := describe(&mysql.MySQLError{Number: 1045, Message: "Access denied for user"})
	assert.Contains(t, err.Error(), "access denied")

	var me *mysql.MySQLError
	assert.ErrorAs(t, err, &me)

	assert.Nil(t, describe(nil))
}
