package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get returns an instance", func() {
			So(Get(), ShouldNotBeNil)
		})

		Convey("When logging at info", func() {
			Get().Info(context.Background(), "hello", String("k", "v"), Int("n", 3))

			Convey("Then the record is written as text", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "msg=hello")
				So(out, ShouldContainSubstring, "k=v")
				So(out, ShouldContainSubstring, "n=3")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(context.Background(), "hidden")
			Get().Warn(context.Background(), "shown")

			Convey("Then info records are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When setting an unknown level", func() {
			err := SetLevelString("chatty")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log level")
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a json logger with source enabled", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithFormat(FormatJSON), WithSource(true)), ShouldBeNil)

		Named("request").Error(context.Background(), "boom", Error(errors.New("bad gateway")))

		Convey("Then the record decodes and carries component, error and source", func() {
			var rec map[string]any
			So(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec), ShouldBeNil)
			So(rec["msg"], ShouldEqual, "boom")
			So(rec["component"], ShouldEqual, "request")
			So(rec["error"], ShouldEqual, "bad gateway")
			So(rec["source"], ShouldContainSubstring, "logger_test.go")
		})
	})
}

func TestParseLevel(t *testing.T) {
	Convey("Given level names", t, func() {
		cases := map[string]slog.Level{
			"debug":   slog.LevelDebug,
			"":        slog.LevelInfo,
			"INFO":    slog.LevelInfo,
			"warning": slog.LevelWarn,
			" error ": slog.LevelError,
		}
		for name, want := range cases {
			got, err := ParseLevel(name)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
	})
}

func TestStandaloneLoggers(t *testing.T) {
	Convey("Given a standalone logger", t, func() {
		var buf bytes.Buffer
		l := New(&buf, FormatText, slog.LevelDebug)
		l.Debug(context.Background(), "dbg", Bool("ok", true))
		So(buf.String(), ShouldContainSubstring, "ok=true")

		Convey("And a nop logger writes nothing and never panics", func() {
			So(func() { Nop().Error(context.Background(), "x") }, ShouldNotPanic)
		})
	})
}
