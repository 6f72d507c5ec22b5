// deployment_runner.go implements the DeploymentRunner background job: a
// bounded queue and worker pool that drives each deployment from pending to a
// terminal state. The pipeline stages are a placeholder for real build/test/
// deploy execution; a real implementation would substitute genuine work per
// stage while preserving the append-only log contract.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/db/models"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/safego"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/telemetry"
)

// pipelineStages is the fixed, ordered log line sequence appended during a run
var pipelineStages = []string{
	"Pulling source code...",
	"Building application...",
	"Running tests...",
	"Deploying to server...",
}

const stageSuccessLine = "Deployment completed successfully"

// DeploymentStore is the subset of DeploymentRepository the runner needs
type DeploymentStore interface {
	MarkDeploying(ctx context.Context, deploymentID string) error
	AppendLog(ctx context.Context, deploymentID, line string) error
	MarkCompleted(ctx context.Context, deploymentID, status string) error
}

// AppStore is the subset of AppRepository the runner needs
type AppStore interface {
	UpdateAppStatus(ctx context.Context, appID, status string, url *string) error
}

// DeploymentJob identifies one deployment to run and carries the app fields
// needed to provision its public URL
type DeploymentJob struct {
	DeploymentID string
	AppID        string
	AppName      string
}

// DeploymentRunner consumes deployment jobs from a bounded queue with a fixed
// worker pool. The scheduling call never blocks the HTTP request that created
// the deployment, and a fault in one pipeline run is contained to that run.
type DeploymentRunner struct {
	deployments DeploymentStore
	apps        AppStore
	baseDomain  string
	stageDelay  time.Duration
	queue       chan DeploymentJob
	workers     int
	wg          sync.WaitGroup
	stopOnce    sync.Once
	stop        chan struct{}
}

// NewDeploymentRunner creates a runner with the given queue capacity and
// worker count. stageDelay is the simulated duration of each pipeline stage.
func NewDeploymentRunner(deployments DeploymentStore, apps AppStore, baseDomain string, queueSize, workers int, stageDelay time.Duration) *DeploymentRunner {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &DeploymentRunner{
		deployments: deployments,
		apps:        apps,
		baseDomain:  baseDomain,
		stageDelay:  stageDelay,
		queue:       make(chan DeploymentJob, queueSize),
		workers:     workers,
		stop:        make(chan struct{}),
	}
}

// Start launches the worker pool
func (r *DeploymentRunner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		safego.Go(fmt.Sprintf("deployment-worker-%d", i), func() {
			defer r.wg.Done()
			r.workerLoop()
		})
	}
	slog.Info("deployment runner started", "workers", r.workers, "queue_size", cap(r.queue))
}

func (r *DeploymentRunner) workerLoop() {
	for {
		select {
		case <-r.stop:
			return
		case job := <-r.queue:
			telemetry.DeploymentQueueDepth.Set(float64(len(r.queue)))
			r.runOne(job)
		}
	}
}

// Schedule enqueues a deployment job and returns immediately. If the queue is
// full the pipeline runs on a dedicated goroutine instead, so a scheduled
// deployment is never silently dropped.
func (r *DeploymentRunner) Schedule(job DeploymentJob) {
	select {
	case r.queue <- job:
		telemetry.DeploymentQueueDepth.Set(float64(len(r.queue)))
	default:
		slog.Warn("deployment queue full, running pipeline on overflow goroutine", "deployment_id", job.DeploymentID)
		safego.Go("deployment-overflow", func() { r.runOne(job) })
	}
}

// Shutdown stops the workers after their in-flight runs finish. Queued but
// unstarted jobs remain pending in the database.
func (r *DeploymentRunner) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// runOne drives a single deployment to a terminal state. Any fault, including
// a panic, ends in the failed branch; nothing escapes to the caller.
func (r *DeploymentRunner) runOne(job DeploymentJob) {
	start := time.Now()
	ctx := context.Background()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("deployment pipeline panicked", "deployment_id", job.DeploymentID, "panic", rec)
			r.fail(ctx, job, fmt.Sprintf("Deployment failed: internal error: %v", rec))
		}
	}()

	if err := r.deployments.MarkDeploying(ctx, job.DeploymentID); err != nil {
		r.fail(ctx, job, "Deployment failed: could not start pipeline")
		return
	}
	if err := r.apps.UpdateAppStatus(ctx, job.AppID, models.AppStatusDeploying, nil); err != nil {
		slog.Warn("failed to mark app deploying", "app_id", job.AppID, "error", err)
	}

	for _, stage := range pipelineStages {
		if err := r.deployments.AppendLog(ctx, job.DeploymentID, stage); err != nil {
			r.fail(ctx, job, "Deployment failed: could not record pipeline progress")
			return
		}
		if r.stageDelay > 0 {
			time.Sleep(r.stageDelay)
		}
	}

	if err := r.deployments.AppendLog(ctx, job.DeploymentID, stageSuccessLine); err != nil {
		r.fail(ctx, job, "Deployment failed: could not record pipeline progress")
		return
	}

	// Terminal status and completion time land in one write, then the app is
	// brought in line. A reader can briefly see a running deployment with a
	// deploying app, but never the reverse.
	if err := r.deployments.MarkCompleted(ctx, job.DeploymentID, models.DeploymentStatusRunning); err != nil {
		slog.Error("failed to complete deployment", "deployment_id", job.DeploymentID, "error", err)
		return
	}

	url := AppURL(job.AppName, job.AppID, r.baseDomain)
	if err := r.apps.UpdateAppStatus(ctx, job.AppID, models.AppStatusRunning, &url); err != nil {
		slog.Error("failed to mark app running", "app_id", job.AppID, "error", err)
	}

	telemetry.DeploymentsProcessedTotal.WithLabelValues(models.DeploymentStatusRunning).Inc()
	telemetry.DeploymentDuration.Observe(time.Since(start).Seconds())
	slog.Info("deployment completed", "deployment_id", job.DeploymentID, "app_id", job.AppID, "url", url)
}

// fail drives the deployment into its failed terminal state. Best-effort: if
// the store itself is down there is nothing further to do but log.
func (r *DeploymentRunner) fail(ctx context.Context, job DeploymentJob, line string) {
	if err := r.deployments.AppendLog(ctx, job.DeploymentID, line); err != nil {
		slog.Error("failed to append failure log", "deployment_id", job.DeploymentID, "error", err)
	}
	if err := r.deployments.MarkCompleted(ctx, job.DeploymentID, models.DeploymentStatusFailed); err != nil {
		slog.Error("failed to mark deployment failed", "deployment_id", job.DeploymentID, "error", err)
		return
	}
	if err := r.apps.UpdateAppStatus(ctx, job.AppID, models.AppStatusFailed, nil); err != nil {
		slog.Error("failed to mark app failed", "app_id", job.AppID, "error", err)
	}
	telemetry.DeploymentsProcessedTotal.WithLabelValues(models.DeploymentStatusFailed).Inc()
}

// AppURL builds the public URL assigned to an app,
// e.g. https://myapp-a1b2c3d4.myplatform.app
func AppURL(name, appID, baseDomain string) string {
	short := appID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("https://%s-%s.%s", name, short, baseDomain)
}

// FunctionEndpoint builds the invocation URL assigned to a serverless
// function at creation, e.g. https://fn-hello-a1b2c3d4.myplatform.app/invoke
func FunctionEndpoint(name, functionID, baseDomain string) string {
	short := functionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("https://fn-%s-%s.%s/invoke", name, short, baseDomain)
}
