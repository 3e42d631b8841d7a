package resource

import "transcode-jobs/pkg/manager"

func init() {
	manager.RegisterResourcePlugin(&MySQLResourcePlugin{})
	manager.RegisterResourcePlugin(&RedisResourcePlugin{})
	manager.RegisterResourcePlugin(&MinioResourcePlugin{})
	manager.RegisterResourcePlugin(&KafkaResourcePlugin{})
}
