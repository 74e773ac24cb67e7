package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTxIgnoresNil(t *testing.T) {
	ctx := WithTx(context.Background(), nil)
	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestExecutorFallsBackToDB(t *testing.T) {
	db := &sql.DB{}
	assert.Same(t, db, Executor(context.Background(), db))
}

func TestExecutorPrefersContextTx(t *testing.T) {
	sqlTx := &sql.Tx{}
	ctx := WithTx(context.Background(), sqlTx)
	assert.Same(t, sqlTx, Executor(ctx, &sql.DB{}))
}
