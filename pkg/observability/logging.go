package observability

import (
	"log/slog"

	"github.com/aretw0/actscript/pkg/domain"
)

// LogHooks returns lifecycle hooks that write structured events to logger.
func LogHooks(logger *slog.Logger) *domain.LifecycleHooks {
	hooks := domain.NewLifecycleHooks()
	hooks.OnMessages(domain.HookAfterInit, func(_ []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		logger.Info("session_init", "session_id", state.SessionID, "acts", len(state.Queue))
		return nil
	})
	hooks.OnMessages(domain.HookAfterLoad, func(_ []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		logger.Info("session_load", "session_id", state.SessionID, "act", state.Act)
		return nil
	})
	hooks.OnMessages(domain.HookAfterBuild, func(v []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		logger.Info("act_built", "session_id", state.SessionID, "act", state.Act, "messages", len(v))
		return nil
	})
	hooks.OnMessages(domain.HookBeforePushMessage, func(v []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		for _, msg := range v {
			logger.Debug("answer", "session_id", state.SessionID, "role", msg.Role, "chars", len(msg.Content))
		}
		return nil
	})
	hooks.OnMessages(domain.HookBeforeSave, func(_ []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		logger.Debug("session_save", "session_id", state.SessionID, "history", len(state.History))
		return nil
	})
	return hooks
}
