package observability

import (
	"os"

	"github.com/grafana/pyroscope-go"

	"transcode-jobs/pkg/logger"
)

// StartProfiling attaches the process to a pyroscope server when
// PYROSCOPE_SERVER_ADDRESS is set. A missing address disables profiling.
func StartProfiling(appName string) {
	addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if addr == "" {
		return
	}

	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		Logger:          nil,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		logger.Warnf("pyroscope profiling not started: %v", err)
		return
	}
	logger.Infof("pyroscope profiling started server=%s app=%s", addr, appName)
}
