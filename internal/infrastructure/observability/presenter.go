package observability

import (
	"github.com/rs/zerolog"

	"interview-monitor/internal/domain"
)

// LogPresenter writes everything the operator would see to the log.
type LogPresenter struct {
	logger *zerolog.Logger
}

func NewLogPresenter(l *zerolog.Logger) *LogPresenter {
	return &LogPresenter{logger: Component(l, "console")}
}

func (p *LogPresenter) Notice(n domain.Notice) {
	ev := p.logger.Info()
	switch n.Level {
	case domain.NoticeWarn:
		ev = p.logger.Warn()
	case domain.NoticeError:
		ev = p.logger.Error()
	}
	ev.Str("notice", string(n.Level)).Msg(n.Message)
}

func (p *LogPresenter) StateChanged(s domain.Session) {
	p.logger.Debug().Str("state", string(s.State)).Str("session", s.ID).Str("target", s.TargetID).Msg("session state")
}

func (p *LogPresenter) AlertAdded(a domain.Alert) {
	p.logger.Info().Str("alert", a.ID).Str("severity", string(a.Severity)).Str("kind", a.Kind).Msg(a.Title)
}

func (p *LogPresenter) AlertRemoved(id string) {
	p.logger.Debug().Str("alert", id).Msg("alert removed")
}

func (p *LogPresenter) AlertsCleared() {
	p.logger.Debug().Msg("alerts cleared")
}
