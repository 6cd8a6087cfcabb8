// Package docker runs sandboxed JavaScript inside short-lived node containers.
package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/runner"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

type Executor struct {
	cli    *client.Client
	config Config
	pool   *Pool
}

// New connects to the daemon from the environment, pulls the image and warms the pool.
func New(ctx context.Context, cfg Config) (*Executor, error) {
	cfg = cfg.withDefaults()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	telemetry.LogInfo(ctx, "pulling sandbox image", telemetry.LogString("image", cfg.Image))
	reader, err := cli.ImagePull(pullCtx, cfg.Image, image.PullOptions{})
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("pull image %s: %w", cfg.Image, err)
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	e := &Executor{cli: cli, config: cfg}
	e.pool = NewPool(cfg.PoolSize, e.createContainer, e.removeContainer)
	e.pool.Start()
	return e, nil
}

func (e *Executor) Close() error {
	e.pool.Stop()
	return e.cli.Close()
}

func (e *Executor) Execute(ctx context.Context, req runner.Request) (*runner.Result, error) {
	start := time.Now()

	containerID, err := e.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sandbox: %w", err)
	}
	defer e.removeContainer(containerID)

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	execResp, err := e.cli.ContainerExecCreate(runCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   "/tmp",
		Cmd:          nodeCommand(req.Code),
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	attach, err := e.cli.ContainerExecAttach(runCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()

	// Output past the cap ends the run; the container is discarded afterwards anyway.
	stdout := newCappedBuffer(e.config.OutputLimit, cancel)
	stderr := newCappedBuffer(e.config.OutputLimit, cancel)
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(stdout, stderr, attach.Reader)
		close(done)
	}()

	res := &runner.Result{}
	select {
	case <-done:
		inspect, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			res.ExitCode = inspect.ExitCode
		}
	case <-runCtx.Done():
		attach.Close()
		<-done
		res.ExitCode = runner.ExitTimeout
		res.TimedOut = true
	}

	if stdout.Truncated() || stderr.Truncated() {
		res.Truncated = true
		res.TimedOut = false
		res.ExitCode = runner.ExitOutputLimit
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Console = decodeConsole(res.Stdout)
	res.Duration = time.Since(start)
	return res, nil
}

// createContainer starts an idle, network-less container the pool can hand out.
func (e *Executor) createContainer(ctx context.Context) (string, error) {
	hostConfig := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=16m"},
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:    e.config.MemoryLimit,
			NanoCPUs:  int64(e.config.CPULimit * 1e9),
			PidsLimit: ptr(int64(64)),
		},
	}

	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image: e.config.Image,
		Cmd:   []string{"sleep", "infinity"},
		User:  "node",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		e.removeContainer(resp.ID)
		return "", fmt.Errorf("container start: %w", err)
	}
	return resp.ID, nil
}

func (e *Executor) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		telemetry.LogWarn(ctx, "sandbox container remove failed",
			telemetry.LogString("container.id", id),
			telemetry.LogErr(err),
		)
	}
}

func ptr[T any](v T) *T {
	return &v
}

var _ runner.Executor = (*Executor)(nil)
