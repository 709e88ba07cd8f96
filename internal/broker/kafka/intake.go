package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/BearBump/CareTrack/internal/broker/messages"
	"github.com/BearBump/CareTrack/internal/models"
)

type fixIngester interface {
	Ingest(ctx context.Context, fix *models.Fix) error
}

// FixIntake drains the device-fix topic into the ingest pipeline. Malformed
// or invalid records are logged and committed; only infrastructure failures
// stop the loop.
type FixIntake struct {
	c        *Consumer
	pipeline fixIngester
	log      *slog.Logger
}

func NewFixIntake(c *Consumer, pipeline fixIngester, log *slog.Logger) *FixIntake {
	if log == nil {
		log = slog.Default()
	}
	return &FixIntake{c: c, pipeline: pipeline, log: log}
}

func (in *FixIntake) Run(ctx context.Context) error {
	return in.c.Consume(ctx, func(key, value []byte) error {
		var rec messages.FixReceived
		if err := json.Unmarshal(value, &rec); err != nil {
			in.log.Warn("skip malformed fix record", "key", string(key), "error", err.Error())
			return nil
		}

		fix := &models.Fix{
			PatientID: rec.PatientID,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Timestamp: rec.Timestamp,
			Source:    models.FixSourceKafka,
		}
		if err := in.pipeline.Ingest(ctx, fix); err != nil {
			if models.Retryable(err) {
				return err
			}
			// Bad data is dropped, not redelivered forever.
			in.log.Warn("skip rejected fix", "patient_id", rec.PatientID, "error", err.Error())
			return nil
		}
		return nil
	})
}

func (in *FixIntake) Close() error {
	return in.c.Close()
}
