package async_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("runs after parent context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var handlerErr error
		<-async.Dispatch(ctx, func(ctx context.Context) error {
			handlerErr = ctx.Err()
			return nil
		})
		gt.NoError(t, handlerErr)
	})

	t.Run("error and panic do not escape", func(t *testing.T) {
		<-async.Dispatch(context.Background(), func(ctx context.Context) error {
			return errors.New("failed")
		})
		<-async.Dispatch(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}
