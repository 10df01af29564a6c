package workers

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"llm-tournament-system/utils"

	"github.com/go-co-op/gocron/v2"
)

// BackupWorker snapshots the data directory on a fixed schedule and,
// when R2 is configured, uploads each snapshot off-site.
type BackupWorker struct {
	DataDir    string
	BackupRoot string
	Interval   time.Duration

	sched gocron.Scheduler
}

func NewBackupWorker(dataDir, backupRoot string, interval time.Duration) *BackupWorker {
	return &BackupWorker{
		DataDir:    dataDir,
		BackupRoot: backupRoot,
		Interval:   interval,
	}
}

// Start schedules the periodic backup job.
func (w *BackupWorker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	_, err = sched.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(w.runOnce),
	)
	if err != nil {
		return err
	}

	sched.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (w *BackupWorker) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}

func (w *BackupWorker) runOnce() {
	backupDir, err := utils.SnapshotData(w.DataDir, w.BackupRoot)
	if err != nil {
		log.Printf("[Backup] snapshot failed: %v", err)
		return
	}
	log.Printf("✅ Backup completed: %s", backupDir)

	if !utils.R2Enabled() {
		return
	}
	for _, name := range utils.DataFiles() {
		localPath := filepath.Join(backupDir, name)
		if _, err := os.Stat(localPath); err != nil {
			continue
		}
		key := filepath.ToSlash(filepath.Join("backups", filepath.Base(backupDir), name))
		if err := utils.UploadBackupToR2(localPath, key); err != nil {
			log.Printf("[Backup] R2 upload failed for %s: %v", name, err)
		}
	}
	log.Printf("✅ Backup uploaded to R2: %s", filepath.Base(backupDir))
}
