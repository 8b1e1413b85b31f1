package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 5 * time.Minute

// 1回分の処理。戻り値は処理件数（ログ用）
type JobFunc func(ctx context.Context) (int64, error)

type JobObserver interface {
	ObserveJob(job string, ok bool)
}

// 名前付きの定期ジョブをcronで回す
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
	obs  JobObserver
}

func NewScheduler(log logrus.FieldLogger, obs JobObserver) *Scheduler {
	return &Scheduler{
		// 前回が終わっていなければ今回は飛ばす
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
		obs:  obs,
	}
}

// specは "@every 1h" や "0 3 * * *"
func (s *Scheduler) Add(spec, name string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() { s.RunOnce(name, fn) })
	return err
}

func (s *Scheduler) RunOnce(name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	if s.obs != nil {
		s.obs.ObserveJob(name, err == nil)
	}

	entry := s.log.WithFields(logrus.Fields{
		"job":         name,
		"affected":    n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.Info("job finished")
}

func (s *Scheduler) Start() { s.cron.Start() }

// 実行中のジョブが終わるまで待つ
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
