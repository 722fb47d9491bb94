package dumper

import (
	"Go2NetBandwidth/internal/alerter"
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/notification"
)

func init() {
	factory.RegisterDumper("alert", func(cfg *config.Config, _ config.DumperDef) (model.Dumper, error) {
		notifier, err := notification.NewEmailNotifier(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		return alerter.NewAlerter(&cfg.Alerter, notifier)
	})
}
