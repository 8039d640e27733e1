package app

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
)

// runPipeline reads frames on a ticker until stopCh closes.
//
// Pipeline logic:
//  1. Start in idle mode (IdleFPS)
//  2. On motion, switch to active mode (ActiveFPS)
//  3. In active mode, detect the pose and feed it to the session
//  4. After IdleTimeout without motion, switch back to idle mode
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				if errors.Is(err, capture.ErrNoMoreFrames) {
					log.Info("camera playback finished")
					return
				}
				log.Debugf("read frame: %v", err)
				continue
			}

			changed := a.processFrame(frame, now)
			frame.Close()

			if changed {
				fps := a.gate.FPS()
				a.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

// processFrame runs one frame through the motion gate, pose detection and
// the session. It reports whether the gate changed state.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) bool {
	motion, change := a.motion.Detect(frame)
	active, changed := a.gate.Observe(motion, now)
	if changed {
		log.WithField("change_pct", change).Debugf("motion gate active=%v", active)
	}

	a.mu.RLock()
	s := a.session
	a.mu.RUnlock()

	var tracked *pose.Pose
	var snap *repcount.Snapshot

	if active && s != nil {
		tracked, snap = a.detectAndFeed(s, frame)
	}

	if snap == nil && s != nil {
		current := s.Snapshot()
		snap = &current
	}

	capture.DrawPose(frame, tracked, snap, capture.OverlayStyle{})
	a.setLastFrame(frame)
	return changed
}

func (a *App) detectAndFeed(s *session.Session, frame *gocv.Mat) (*pose.Pose, *repcount.Snapshot) {
	start := time.Now()
	poses, err := a.detector.Detect(frame)
	if a.config.Metrics != nil {
		a.config.Metrics.HistDetectDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Warnf("detect pose: %v", err)
		return nil, nil
	}

	// nobody in frame, or a person with no landmarks, counts as an
	// indeterminate frame
	var tracked *pose.Pose
	if len(poses) > 0 && poses[0].Len() > 0 {
		tracked = &poses[0]
	}

	snap, err := s.Feed(tracked)
	if err != nil {
		// stopped between ticks; the frame is dropped
		return tracked, nil
	}
	if snap.Counted {
		log.WithFields(log.Fields{"session": s.ID(), "reps": snap.Reps}).Info("rep counted")
	}
	a.notify(snap)
	return tracked, &snap
}
