package main

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stratdesk/internal/mockapi"
)

func TestRun(t *testing.T) {
	Convey("Given the mockapi entrypoint", t, func() {
		Convey("When the listen address is already taken", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)
			defer func() { _ = ln.Close() }()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			code := run(ctx, []string{"-addr", ln.Addr().String()})

			Convey("Then it exits with an error code", func() {
				So(code, ShouldEqual, exitError)
				So(ctx.Err(), ShouldBeNil)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			code := run(ctx, []string{"-addr", "127.0.0.1:0"})

			Convey("Then it shuts down cleanly", func() {
				So(code, ShouldEqual, exitOK)
			})
		})

		Convey("When given an unknown flag", func() {
			code := run(context.Background(), []string{"-nope"})

			Convey("Then it fails before serving", func() {
				So(code, ShouldEqual, exitError)
			})
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	Convey("Given a running metrics updater", t, func() {
		srv := mockapi.NewServer(mockapi.NewStore())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			startServiceMetricsUpdater(ctx, srv)
			close(done)
		}()

		Convey("When its context is cancelled", func() {
			cancel()

			Convey("Then it returns", func() {
				var stopped bool
				select {
				case <-done:
					stopped = true
				case <-time.After(2 * time.Second):
				}
				So(stopped, ShouldBeTrue)
			})
		})

		Reset(cancel)
	})
}
