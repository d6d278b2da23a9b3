package control

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kclarke-dev/ringwatch/internal/host"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func attrs() host.Attributes {
	return host.Attributes{DataCenter: "dc1", Rack: "r1", ID: uuid.New(), ReleaseVersion: "4.0.1"}
}

var errDial = errors.New("dial: connection refused")

type fakeAuthProvider struct {
	token []byte
}

func (p fakeAuthProvider) Credentials(authenticatorClass string) ([]byte, error) {
	return p.token, nil
}
