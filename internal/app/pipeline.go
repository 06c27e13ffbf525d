package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/autoframe/internal/capture"
	"github.com/ayusman/autoframe/internal/motion"
)

// runPipeline reads the camera and feeds the controller until ctx is done.
//
// The camera runs at the idle rate while the device is Shaky, since no
// suggestion is requested then, and at the active rate otherwise. Digital zoom
// is applied before a frame reaches the preview, the shutter or the controller,
// so all three see what an optical zoom would have produced.
func (a *App) runPipeline(ctx context.Context) error {
	idle, active := a.settings.Camera.IdleFPS, a.settings.Camera.ActiveFPS

	activeMode := true
	a.camera.SetFPS(active)
	ticker := time.NewTicker(frameInterval(active))
	defer ticker.Stop()

	var readErrors int
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		shaky := a.monitor.Level() == motion.Shaky
		if shaky == activeMode {
			activeMode = !shaky
			fps := active
			if shaky {
				fps = idle
			}
			a.camera.SetFPS(fps)
			ticker.Reset(frameInterval(fps))
			a.log.Debug("camera rate changed", "fps", fps, "level", a.monitor.Level())
		}

		f, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrCameraNotOpen) {
				return err
			}
			if readErrors == 0 {
				a.log.Warn("frame read failed", "error", err)
			}
			readErrors++
			continue
		}
		if readErrors > 0 {
			a.log.Info("frame reads recovered", "failed", readErrors)
			readErrors = 0
		}

		if a.digital != nil {
			f = a.digital.Apply(f)
		}
		a.preview.Store(f)
		a.controller.Submit(f)
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
