package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilschoy78/school-mis-api/internal/config"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
)

// bootstrapRecorder records Bootstrap calls; other iam.Service methods are unused.
type bootstrapRecorder struct {
	iam.Service
	created bool
	err     error
	got     []iam.BootstrapInput
}

func (b *bootstrapRecorder) Bootstrap(_ context.Context, in iam.BootstrapInput) (bool, error) {
	b.got = append(b.got, in)
	return b.created, b.err
}

func TestServeBootstrapFlag(t *testing.T) {
	flag := serveCmd.Flags().Lookup("bootstrap")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestSeedSuperAdmin(t *testing.T) {
	bc := config.BootstrapConfig{
		Email:     "root@school.test",
		Password:  "s3cret-pass",
		FirstName: "Super",
		LastName:  "Admin",
	}

	t.Run("passes the bootstrap configuration", func(t *testing.T) {
		rec := &bootstrapRecorder{created: true}
		require.NoError(t, seedSuperAdmin(context.Background(), rec, bc, logging.Discard()))
		require.Len(t, rec.got, 1)
		assert.Equal(t, iam.BootstrapInput{
			Email:     "root@school.test",
			Password:  "s3cret-pass",
			FirstName: "Super",
			LastName:  "Admin",
		}, rec.got[0])
	})

	t.Run("existing super admin is not an error", func(t *testing.T) {
		rec := &bootstrapRecorder{created: false}
		assert.NoError(t, seedSuperAdmin(context.Background(), rec, bc, logging.Discard()))
	})

	t.Run("failure aborts startup", func(t *testing.T) {
		rec := &bootstrapRecorder{err: errors.New("db down")}
		err := seedSuperAdmin(context.Background(), rec, bc, logging.Discard())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}
