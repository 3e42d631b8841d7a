package events

import (
	"context"
	"encoding/json"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/pkg/kafka"
	"transcode-jobs/pkg/logger"
)

const publishTimeout = 5 * time.Second

// JobEvent is the lifecycle record published on every committed transition.
type JobEvent struct {
	JobID       string `json:"jobId"`
	State       string `json:"state"`
	ErrorDetail string `json:"errorDetail,omitempty"`
	ArtifactKey string `json:"artifactKey,omitempty"`
	OccurredAt  string `json:"occurredAt"`
}

// KafkaPublisher emits job lifecycle events. It is installed as a store
// transition hook; broker failures are logged and never block a transition.
type KafkaPublisher struct {
	client *kafka.Client
	topic  string
}

// NewKafkaPublisher binds the publisher to the events topic.
func NewKafkaPublisher(client *kafka.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

// PublishTransition serializes and sends the committed snapshot. Safe to
// install directly as a store hook.
func (p *KafkaPublisher) PublishTransition(job *entity.Job) {
	event := JobEvent{
		JobID:      job.ID,
		State:      job.State.String(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if job.ErrorDetail != "" {
		event.ErrorDetail = job.ErrorDetail
	}
	if job.Artifact != nil {
		event.ArtifactKey = job.Artifact.ObjectKey
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("marshal job event job_id=%s: %v", job.ID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Produce(ctx, p.topic, []byte(job.ID), payload); err != nil {
		logger.Errorf("publish job event job_id=%s state=%s: %v", job.ID, job.State, err)
		return
	}
	logger.Debugf("job event published job_id=%s state=%s", job.ID, job.State)
}
