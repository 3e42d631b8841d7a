package resource

import (
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/kafka"
	"transcode-jobs/pkg/logger"
	"transcode-jobs/pkg/manager"
)

// KafkaResource manages the shared kafka client.
type KafkaResource struct {
	opened bool
}

// KafkaResourcePlugin wires the resource into the manager.
type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string { return "kafka" }

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource { return &KafkaResource{} }

// MustOpen opens the shared kafka client when kafka is enabled.
func (r *KafkaResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before kafka resource")
	}
	if !cfg.Kafka.Enabled {
		logger.Warnf("kafka disabled, job events will not be published")
		return
	}
	kafka.DefaultClient().MustOpen()
	r.opened = true
}

// Close releases the shared kafka client.
func (r *KafkaResource) Close() {
	if r.opened {
		kafka.DefaultClient().Close()
	}
}
