package data

import (
	"testing"

	"BountyBot/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMySQLClient_EmptySource(t *testing.T) {
	for _, c := range []*conf.Data{nil, {}, {Database: &conf.DataDatabase{Driver: "mysql"}}} {
		db, cleanup, err := NewMySQLClient(c, log.DefaultLogger)
		require.NoError(t, err)
		assert.Nil(t, db)
		require.NotNil(t, cleanup)
		cleanup()
	}
}

func TestNewMySQLClient_Unreachable(t *testing.T) {
	c := &conf.Data{Database: &conf.DataDatabase{
		Driver: "mysql",
		Source: "bounty:secret@tcp(127.0.0.1:1)/bounty?timeout=200ms",
	}}

	_, _, err := NewMySQLClient(c, log.DefaultLogger)
	assert.Error(t, err)
}
