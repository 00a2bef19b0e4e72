package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/boothy-app/camera-core/internal/config"
	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/exportqueue"
	"github.com/boothy-app/camera-core/internal/health"
	"github.com/boothy-app/camera-core/internal/ingest"
	"github.com/boothy-app/camera-core/internal/pipetransport"
	"github.com/boothy-app/camera-core/internal/preset"
	"github.com/boothy-app/camera-core/internal/protocol"
	"github.com/boothy-app/camera-core/internal/settings"
	"github.com/boothy-app/camera-core/internal/storagehealth"
	"github.com/boothy-app/camera-core/internal/supervisor"
)

var startMetric = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "boothy_core_start",
	Help: "Start timestamp of the app (unix)",
})

func main() {
	fmt.Println("Entering program")

	cfg := config.Default()
	cfg.Sidecar.BinaryPath = os.Getenv("BOOTHY_SIDECAR_PATH")
	if mode := os.Getenv("BOOTHY_CAMERA_MODE"); mode == "mock" || mode == "real" {
		cfg.Sidecar.Mode = mode
	}
	if cfg.Sidecar.PipeName == "" {
		cfg.Sidecar.PipeName = pipetransport.DefaultName()
	}
	if err := cfg.Check(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := corelog.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		log.Fatalf("can't initialize logger: %v", err)
	}
	defer logger.Sync()

	emitter := protocol.NopEmitter{}
	presets := preset.NewStore()
	monitor := health.New()

	sv := supervisor.New(cfg.Sidecar.PipeName, cfg.Sidecar.BinaryPath, cfg.Sidecar.Mode,
		logger, emitter, supervisor.NewExecLauncher(),
		func(ctx context.Context, sv *supervisor.Supervisor) {
			monitor.Run(ctx, sv, cfg.Monitor, logger, emitter)
		})

	session := exportqueue.NewSingleSession()
	queue := exportqueue.New(cfg.ExportQueue.Backlog, logger, session,
		noopPipeline{}, settings.NewDefaultFixed(), storagehealth.AlwaysHealthy{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go queue.Run(ctx)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Error("export queue shutdown flush failed", corelog.Error(err))
		}
	}()

	if err := sv.Start(ctx); err != nil {
		logger.Error("initial sidecar start failed", corelog.Error(err))
	}
	defer sv.Stop(context.Background())

	startTime := time.Now()
	startMetric.Set(float64(startTime.Unix()))

	if root := os.Getenv("BOOTHY_WATCH_DIR"); root != "" {
		watcher := ingest.New(root, cfg.Stabilizer, ingest.DefaultExtensions(), logger, emitter, presets,
			func(path, correlationID string) {
				queue.Enqueue(path, correlationID, time.Now())
			})
		if err := watcher.Watch(ctx); err != nil {
			logger.Error("failed to start directory watch", corelog.Error(err), corelog.String("root", root))
		}
	}

	http.Handle("/metrics", promhttp.Handler())

	fmt.Println("Listening on port :8080")
	srv := &http.Server{
		Addr:           ":8080",
		Handler:        http.DefaultServeMux,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   7 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatal(srv.ListenAndServe())
}

// noopPipeline is the default develop/export collaborator until a host
// application wires in its own image pipeline.
type noopPipeline struct{}

func (noopPipeline) DevelopAndExport(ctx context.Context, rawPath string, s settings.ExportSettings, cancel *atomic.Bool) error {
	return nil
}
