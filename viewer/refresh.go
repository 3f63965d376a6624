package viewer

// startRefresh re-fetches the signed URL on a fixed interval that is shorter
// than the credential lifetime. It runs on the loop.
func (s *session) startRefresh() {
	s.log.Info("Starting credential refresh",
		"interval", s.opts.RefreshInterval,
		"lifetime", s.opts.CredentialLifetime)
	cancel := s.opts.Scheduler.Every(s.opts.RefreshInterval, s.refresh)
	s.hold(&s.cancelRefresh, cancel)
}

// refresh runs on the scheduler's goroutine. Failures are logged and
// swallowed; the next tick tries again.
func (s *session) refresh() {
	if s.stopped() {
		return
	}
	url, err := s.fetchURL()
	if err != nil {
		s.log.Warn("Failed to refresh secure URL", "error", err)
		return
	}
	s.post(func() {
		s.resourceURL = url
		s.log.Debug("Refreshed secure URL")
	})
}
