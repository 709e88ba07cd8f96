package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/CareTrack/internal/api/careapi"
)

type careAPIOpts struct {
	httpAddr string

	fixTopic      string
	consumerGroup string

	onListen func(httpAddr string)
}

type fixIntake interface {
	Run(ctx context.Context) error
}

func runCareAPI(ctx context.Context, opts careAPIOpts, api *careapi.API, intake fixIntake) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	if intake != nil {
		go func() {
			slog.Info("kafka fix intake started", "topic", opts.fixTopic, "group", opts.consumerGroup)
			if err := intake.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("kafka fix intake stopped", "error", err.Error())
			}
		}()
	}

	srv := &http.Server{Handler: api.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
