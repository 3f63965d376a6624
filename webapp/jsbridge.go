package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

type settled struct {
	value app.Value
	err   error
}

// await blocks until promise settles. It must not be called from a JS
// callback, since the callbacks it waits for could then never run.
func await(ctx context.Context, promise app.Value) (app.Value, error) {
	done := make(chan settled, 1)
	onResolve := app.FuncOf(func(this app.Value, args []app.Value) any {
		var v app.Value
		if len(args) > 0 {
			v = args[0]
		}
		done <- settled{value: v}
		return nil
	})
	onReject := app.FuncOf(func(this app.Value, args []app.Value) any {
		done <- settled{err: jsError(args)}
		return nil
	})
	release := func() {
		onResolve.Release()
		onReject.Release()
	}
	promise.Call("then", onResolve, onReject)

	select {
	case r := <-done:
		release()
		return r.value, r.err
	case <-ctx.Done():
		// The callbacks stay alive until the promise settles
		go func() {
			<-done
			release()
		}()
		return nil, ctx.Err()
	}
}

// jsError turns a rejection reason into a Go error
func jsError(args []app.Value) error {
	if len(args) == 0 || !args[0].Truthy() {
		return errors.New("unknown error")
	}
	reason := args[0]
	if msg := reason.Get("message"); msg.Truthy() {
		return errors.New(msg.String())
	}
	return errors.New(reason.String())
}

// fetchJSON GETs url and decodes the body into out. The HTTP status is
// returned even when the body does not decode.
func fetchJSON(ctx context.Context, url string, out any) (int, error) {
	resp, err := await(ctx, app.Window().Call("fetch", url))
	if err != nil {
		return 0, fmt.Errorf("network error: %w", err)
	}
	status := resp.Get("status").Int()
	text, err := await(ctx, resp.Call("text"))
	if err != nil {
		return status, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal([]byte(text.String()), out); err != nil {
		return status, fmt.Errorf("failed to parse response: %w", err)
	}
	return status, nil
}
