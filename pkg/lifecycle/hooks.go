package lifecycle

import "context"

// Notification is a push message delivered by the host platform.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// OnRetryUploads registers a hook invoked when connectivity is restored.
// This is the extension point for a durable offline upload queue; no such
// queue exists yet, so with nothing registered the trigger is a no-op.
func (m *Manager) OnRetryUploads(hook func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryHooks = append(m.retryHooks, hook)
}

// RetryFailedUploads is the named deferred task triggered by the host
// platform after connectivity returns. It is always safe to invoke:
// with nothing registered it does nothing, and a failing hook is logged
// rather than propagated.
func (m *Manager) RetryFailedUploads(ctx context.Context) {
	m.mu.Lock()
	hooks := make([]func(context.Context) error, len(m.retryHooks))
	copy(hooks, m.retryHooks)
	m.mu.Unlock()

	if len(hooks) == 0 {
		m.logger.Debug().Msg("Background sync triggered, nothing queued")
		return
	}

	m.logger.Info().Int("hooks", len(hooks)).Msg("Retrying failed uploads")
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Upload retry hook failed")
		}
	}
}

// OnPush registers a handler for push notifications.
func (m *Manager) OnPush(handler func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushHandlers = append(m.pushHandlers, handler)
}

// HandlePush dispatches a received push notification to all handlers.
func (m *Manager) HandlePush(n Notification) {
	m.mu.Lock()
	handlers := make([]func(Notification), len(m.pushHandlers))
	copy(handlers, m.pushHandlers)
	m.mu.Unlock()

	if n.Title == "" {
		n.Title = "Field Insights"
	}
	for _, handler := range handlers {
		handler(n)
	}
}

// OnNotificationClick registers a handler for notification click actions.
func (m *Manager) OnNotificationClick(handler func(action string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickHandlers = append(m.clickHandlers, handler)
}

// HandleNotificationClick dispatches a notification click.
func (m *Manager) HandleNotificationClick(action string) {
	m.mu.Lock()
	handlers := make([]func(string), len(m.clickHandlers))
	copy(handlers, m.clickHandlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(action)
	}
}
