package sessions

import (
	"time"

	"geoattend_go/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// expiredGrace is how long past the expected end a forgotten session may
// stay open before the reaper closes it.
const expiredGrace = 15 * time.Minute

// Reaper force-closes sessions whose professor forgot to end them. Runs on a
// cron so a stale geofence never outlives its class by much.
type Reaper struct {
	service *Service
	cron    *cron.Cron
}

func NewReaper(service *Service) *Reaper {
	return &Reaper{service: service, cron: cron.New()}
}

// Start schedules the sweep every five minutes.
func (r *Reaper) Start() {
	if _, err := r.cron.AddFunc("*/5 * * * *", r.Sweep); err != nil {
		logrus.WithError(err).Error("Failed to schedule session reaper")
		return
	}
	r.cron.Start()
	logrus.Info("Session reaper started")
}

// Stop halts the cron scheduler.
func (r *Reaper) Stop() {
	r.cron.Stop()
}

// Sweep closes every active session past its expected end plus grace.
func (r *Reaper) Sweep() {
	now := time.Now()
	cutoff := now.Add(-expiredGrace)

	var stale []models.ActiveClassSession
	err := r.service.db.Where("is_active = ? AND expected_end_time < ?", true, cutoff).
		Find(&stale).Error
	if err != nil {
		logrus.WithError(err).Error("Session reaper query failed")
		return
	}

	for i := range stale {
		session := &stale[i]
		if _, err := r.service.End(session.ID, session.ProfessorID, now); err != nil {
			// Someone ended it between the read and the update; fine.
			logrus.WithError(err).WithField("session_id", session.ID).
				Debug("Session already ended before reaper")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"session_id":   session.ID,
			"professor_id": session.ProfessorID,
			"expected_end": session.ExpectedEndTime,
		}).Info("Force-closed expired session")

		if r.service.alerter != nil {
			var professor models.User
			if err := r.service.db.First(&professor, session.ProfessorID).Error; err == nil {
				r.service.alerter.SessionExpired(&professor, session)
			}
		}
	}
}
