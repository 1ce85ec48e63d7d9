package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/storage"
	"github.com/tandemdrive/tandem/internal/storage/postgres"
	"github.com/tandemdrive/tandem/pkg/core"
)

var _ storage.Backend = (*postgres.Backend)(nil)

func TestInit_Unreachable(t *testing.T) {
	cfg := config.Defaults().DB
	cfg.Host = "127.0.0.1"
	cfg.Port = "1"

	b := postgres.New(cfg, nil)
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
	assert.Nil(t, b.DB())
}

func TestQueuesBeforeInit(t *testing.T) {
	b := postgres.New(config.Defaults().DB, nil)
	require.NoError(t, b.RecordEvent(&core.SessionEvent{Kind: core.EventJoin}))
	assert.Equal(t, 1, b.Pending())
}
