package main

import (
	"transcode-jobs/app"
	"transcode-jobs/pkg/observability"
)

func main() {
	observability.StartProfiling("transcode-jobs")
	app.Run()
}
