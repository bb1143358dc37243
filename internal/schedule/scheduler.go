// Package schedule fires the weekly guild-war announcement.
package schedule

import (
	"context"
	"time"

	"guildgate/internal/config"
	"guildgate/internal/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Sender interface {
	SendAnnouncement(channelID, content string) error
}

type ConfigSource interface {
	GetGuildConfig(ctx context.Context, guildID string) (storage.GuildConfig, error)
}

type Scheduler struct {
	cron    *cron.Cron
	store   ConfigSource
	sender  Sender
	guildID string
	logger  *zap.Logger
}

func New(cfg config.AnnounceConfig, guildID string, store ConfigSource, sender Sender, logger *zap.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(location)),
		store:   store,
		sender:  sender,
		guildID: guildID,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(cfg.Spec, func() {
		s.Announce(context.Background())
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Announce reads the guild config and delivers the war message. This is a
// best-effort reminder: missing config, an unset channel or a failed send
// is a no-op, not an error.
func (s *Scheduler) Announce(ctx context.Context) {
	cfg, err := s.store.GetGuildConfig(ctx, s.guildID)
	if err != nil {
		s.logger.Warn("announcement config read failed", zap.Error(err))
		return
	}
	if cfg.AnnouncementChannel == "" {
		s.logger.Debug("announcement skipped, no channel configured")
		return
	}

	text := cfg.AnnouncementText
	if text == "" {
		text = storage.DefaultWarAnnouncement
	}
	if err := s.sender.SendAnnouncement(cfg.AnnouncementChannel, text); err != nil {
		s.logger.Debug("announcement send failed", zap.String("channel_id", cfg.AnnouncementChannel), zap.Error(err))
		return
	}
	s.logger.Info("war announcement sent", zap.String("channel_id", cfg.AnnouncementChannel))
}
