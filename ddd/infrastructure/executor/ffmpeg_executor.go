package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/gateway"
	"transcode-jobs/ddd/domain/port"
	"transcode-jobs/ddd/domain/vo"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/logger"
)

const (
	stderrTailLines   = 100
	maxDiagnosticSize = 2048
)

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"mov":  "video/quicktime",
}

// FFmpegExecutor implements port.TranscodeExecutor by driving one ffmpeg
// subprocess per job. It owns the staged input, the output file and the
// process handle; all three are reclaimed on every exit path.
type FFmpegExecutor struct {
	cfg     *config.Config
	storage gateway.StorageGateway
	fetcher port.InputFetcher
}

// NewFFmpegExecutor builds an executor. storage may be nil, in which case
// artifacts stay on local disk; fetcher may be nil to disallow URL inputs.
func NewFFmpegExecutor(cfg *config.Config, storage gateway.StorageGateway, fetcher port.InputFetcher) *FFmpegExecutor {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &FFmpegExecutor{cfg: cfg, storage: storage, fetcher: fetcher}
}

// Execute runs one transcode to a terminal outcome. The returned state is
// always terminal; subprocess failures never escape as errors.
func (e *FFmpegExecutor) Execute(ctx context.Context, job *entity.Job, cancel <-chan struct{}) port.Outcome {
	ffCfg := e.cfg.Transcode.FFmpeg

	inputPath, cleanupInput, err := e.stageInput(ctx, job)
	if err != nil {
		return port.Outcome{State: vo.JobStateFailed, ErrorDetail: truncate("stage input: " + err.Error())}
	}
	defer cleanupInput()

	outputPath := filepath.Join(ffCfg.TempDir, "outputs", job.ID+job.Params.OutputExt())
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return port.Outcome{State: vo.JobStateFailed, ErrorDetail: truncate("create output dir: " + err.Error())}
	}
	keepOutput := false
	defer func() {
		if !keepOutput {
			_ = os.Remove(outputPath)
		}
	}()

	cmd := exec.Command(ffCfg.BinaryPath, buildArgs(&job.Params, ffCfg, inputPath, outputPath)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return port.Outcome{State: vo.JobStateFailed, ErrorDetail: truncate("stderr pipe: " + err.Error())}
	}

	logger.Infof("ffmpeg starting job_id=%s command=%s", job.ID, strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return port.Outcome{State: vo.JobStateFailed, ErrorDetail: truncate("start ffmpeg: " + err.Error())}
	}

	tail := make([]string, 0, stderrTailLines)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		captureTail(stderr, &tail)
	}()

	done := make(chan error, 1)
	go func() {
		// Wait closes the stderr pipe, so the tail scan must finish first
		<-scanDone
		done <- cmd.Wait()
	}()

	deadline := e.clampDeadline(job.Deadline)
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			detail := fmt.Sprintf("ffmpeg exited with %s", exitReason(err))
			if excerpt := strings.Join(tail, "\n"); excerpt != "" {
				detail += ": " + excerpt
			}
			logger.Errorf("ffmpeg failed job_id=%s reason=%s", job.ID, exitReason(err))
			return port.Outcome{State: vo.JobStateFailed, ErrorDetail: truncate(detail)}
		}
		artifact, err := e.storeArtifact(ctx, job, outputPath)
		if err != nil {
			return port.Outcome{State: vo.JobStateFailed, ErrorDetail: truncate("store artifact: " + err.Error())}
		}
		keepOutput = artifact.LocalPath == outputPath
		return port.Outcome{State: vo.JobStateSucceeded, Artifact: artifact}

	case <-timer.C:
		e.terminate(cmd, done)
		logger.Warnf("ffmpeg deadline exceeded job_id=%s deadline=%s", job.ID, deadline)
		return port.Outcome{
			State:       vo.JobStateTimedOut,
			ErrorDetail: truncate(fmt.Sprintf("deadline of %s exceeded, process terminated", deadline)),
		}

	case <-cancel:
		e.terminate(cmd, done)
		logger.Infof("ffmpeg cancelled job_id=%s", job.ID)
		return port.Outcome{State: vo.JobStateCancelled}

	case <-ctx.Done():
		e.terminate(cmd, done)
		return port.Outcome{State: vo.JobStateFailed, ErrorDetail: "interrupted by shutdown"}
	}
}

// stageInput places the source media on local disk and returns the path and
// a cleanup func. Local-path inputs are used in place and never removed.
func (e *FFmpegExecutor) stageInput(ctx context.Context, job *entity.Job) (string, func(), error) {
	in := job.Input
	if in.LocalPath != "" {
		if _, err := os.Stat(in.LocalPath); err != nil {
			return "", func() {}, err
		}
		return in.LocalPath, func() {}, nil
	}

	staged := filepath.Join(e.cfg.Transcode.FFmpeg.TempDir, "inputs", "input_"+job.ID)
	if err := os.MkdirAll(filepath.Dir(staged), 0o755); err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.Remove(staged) }

	switch {
	case in.SourceURL != "":
		if e.fetcher == nil {
			return "", cleanup, errors.New("url inputs not supported: no fetcher configured")
		}
		if err := e.fetcher.Fetch(ctx, in.SourceURL, staged); err != nil {
			cleanup()
			return "", func() {}, err
		}
	case in.ObjectKey != "":
		if e.storage == nil {
			return "", cleanup, errors.New("object inputs not supported: no storage configured")
		}
		if err := e.storage.DownloadFile(ctx, in.ObjectKey, staged); err != nil {
			cleanup()
			return "", func() {}, err
		}
	default:
		return "", cleanup, errors.New("job has no input location")
	}
	return staged, cleanup, nil
}

// storeArtifact uploads the output when a storage gateway is configured,
// otherwise the file stays where the executor wrote it.
func (e *FFmpegExecutor) storeArtifact(ctx context.Context, job *entity.Job, outputPath string) (*vo.ArtifactRef, error) {
	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("output missing after exit 0: %w", err)
	}
	contentType := contentTypes[job.Params.Container]

	if e.storage == nil {
		return &vo.ArtifactRef{
			LocalPath:   outputPath,
			ContentType: contentType,
			Size:        info.Size(),
		}, nil
	}

	objectKey := "artifacts/" + job.ID + job.Params.OutputExt()
	uploadedKey, err := e.storage.UploadArtifact(ctx, outputPath, objectKey, contentType)
	if err != nil {
		return nil, err
	}
	return &vo.ArtifactRef{
		ObjectKey:   uploadedKey,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

// terminate escalates SIGTERM -> grace period -> SIGKILL and always reaps
// the process before returning.
func (e *FFmpegExecutor) terminate(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)

	grace := e.cfg.Transcode.FFmpeg.GracePeriod
	select {
	case <-done:
		return
	case <-time.After(grace):
	}

	_ = cmd.Process.Kill()
	<-done
}

func (e *FFmpegExecutor) clampDeadline(d time.Duration) time.Duration {
	ceiling := e.cfg.Transcode.FFmpeg.Timeout
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}

func captureTail(r io.Reader, tail *[]string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		b := *tail
		if len(b) >= stderrTailLines {
			b = b[1:]
		}
		*tail = append(b, scanner.Text())
	}
}

func buildArgs(params *vo.TranscodeParams, ffCfg config.FFmpegConfig, inputPath, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", inputPath,
	}
	args = append(args, params.FFmpegArgs(ffCfg.VideoPreset, ffCfg.Threads)...)
	args = append(args, "-y", outputPath)
	return args
}

func exitReason(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("code %d", exitErr.ExitCode())
	}
	return err.Error()
}

func truncate(s string) string {
	if len(s) <= maxDiagnosticSize {
		return s
	}
	return s[:maxDiagnosticSize]
}

var _ port.TranscodeExecutor = (*FFmpegExecutor)(nil)
