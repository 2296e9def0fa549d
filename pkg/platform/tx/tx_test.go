package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestWithNilTxIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestRunJoinsExistingTx(t *testing.T) {
	outer := WithTx(context.Background(), &sql.Tx{})
	called := false
	err := Run(outer, nil, func(ctx context.Context) error {
		called = true
		_, ok := From(ctx)
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
