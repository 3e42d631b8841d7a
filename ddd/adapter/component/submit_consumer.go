package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	appsvc "transcode-jobs/ddd/application/app"
	"transcode-jobs/ddd/application/cqe"
	pkgkafka "transcode-jobs/pkg/kafka"
	"transcode-jobs/pkg/logger"
)

// SubmitConsumer accepts jobs from the submit topic, so upstream services
// can enqueue work without going through HTTP. Messages carry the same
// fields as the submit endpoint body.
type SubmitConsumer struct {
	jobApp  appsvc.JobApp
	topic   string
	groupID string
	cancel  context.CancelFunc
}

// NewSubmitConsumer creates the consumer.
func NewSubmitConsumer(jobApp appsvc.JobApp, topic, groupID string) *SubmitConsumer {
	return &SubmitConsumer{
		jobApp:  jobApp,
		topic:   topic,
		groupID: groupID,
	}
}

// Name identifies the consumer to the background task manager.
func (c *SubmitConsumer) Name() string { return "submit-consumer" }

// Start launches the consume loop.
func (c *SubmitConsumer) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	reader := pkgkafka.DefaultClient().Reader(c.topic, c.groupID)
	go func() {
		defer reader.Close()
		logger.Infof("submit consumer started topic=%s group=%s", c.topic, c.groupID)
		for {
			msg, err := reader.ReadMessage(loopCtx)
			if err != nil {
				if loopCtx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debugf("submit consumer reader EOF")
				} else {
					logger.Warnf("submit consumer read error error=%s", err.Error())
				}
				continue
			}

			var req cqe.SubmitJobCqe
			if err := json.Unmarshal(msg.Value, &req); err != nil {
				logger.Warnf("submit message unmarshal error error=%s", err.Error())
				continue
			}

			if d, err := c.jobApp.SubmitJob(context.Background(), &req); err != nil {
				logger.Warnf("submit from topic rejected error=%s", err.Error())
			} else {
				logger.Infof("job submitted from topic job_id=%s", d.JobID)
			}
		}
	}()
	return nil
}

// Stop halts the consume loop.
func (c *SubmitConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
