package checks

import (
	"context"
	"os"
	"time"

	"github.com/charlesng35/tradeflow/internal/monitoring"
)

// DownloadDir verifies the export directory exists and accepts new files.
func DownloadDir(dir string) monitoring.Check {
	return monitoring.NewCheck("downloads", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return monitoring.ResultFromError("downloads", err, time.Since(start))
		}
		probe, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return monitoring.ResultFromError("downloads", err, time.Since(start))
		}
		name := probe.Name()
		_ = probe.Close()
		return monitoring.ResultFromError("downloads", os.Remove(name), time.Since(start))
	})
}
