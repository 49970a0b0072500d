package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/worker/processors"

	"github.com/segmentio/kafka-go"
)

// Worker consumes the integration-events topic and hands each event to the
// processor.
type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	reader    *kafka.Reader
	processor *processors.EventProcessor
}

func New(cfg *config.Config, log *logger.Logger, processor *processors.EventProcessor) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.KafkaBrokers, ","),
		GroupID:        "shoplink-worker",
		Topic:          events.Topic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:    cfg,
		logger:    log,
		reader:    reader,
		processor: processor,
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for events...")

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			if errors.Is(err, io.EOF) {
				w.logger.Info("Reader closed, worker exiting")
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received message: %s", string(message.Value))

		var event events.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			w.logger.Error("Failed to parse event: %v", err)
			continue
		}

		procCtx, procCancel := context.WithTimeout(context.Background(), time.Minute)
		err = w.processor.Process(procCtx, event)
		procCancel()
		if err != nil {
			w.logger.Error("Failed to process %s event: %v", event.Type, err)
			continue
		}

		w.logger.Debug("Event processed successfully")
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}
