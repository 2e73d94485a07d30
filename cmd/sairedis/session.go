package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/sairedis/pkg/api"
	"github.com/newtron-network/sairedis/pkg/audit"
	"github.com/newtron-network/sairedis/pkg/backend/memory"
	"github.com/newtron-network/sairedis/pkg/backend/redisdb"
	"github.com/newtron-network/sairedis/pkg/backend/sqlstore"
	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/settings"
	"github.com/newtron-network/sairedis/pkg/util"
)

// session is a dispatcher wired to the configured backend, ready to use.
type session struct {
	schema  *meta.Table
	table   *api.Table
	closers []func() error
}

// loadSchema returns the configured metadata, or the built-in table.
func loadSchema(s *settings.Settings) (*meta.Table, error) {
	if s.Metadata.Path == "" {
		return meta.Default(), nil
	}
	sch, err := meta.LoadFile(s.Metadata.Path)
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	return sch, nil
}

// openSession validates s, connects the backend, and restores the objects
// it already holds. reg receives the dispatcher metrics when non-nil.
func openSession(s *settings.Settings, reg prometheus.Registerer) (*session, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sch, err := loadSchema(s)
	if err != nil {
		return nil, err
	}

	sess := &session{schema: sch}
	var opts []dispatch.Option
	var handler dispatch.Handler

	switch s.Backend {
	case settings.BackendRedis:
		o := redisdb.Options{Addr: s.Redis.Addr, DB: s.Redis.DB, Password: s.Redis.Password, Schema: sch}
		if s.Redis.SSH.Host != "" {
			o.SSH = &redisdb.SSHOptions{
				Host:     s.Redis.SSH.Host,
				Port:     s.Redis.SSH.Port,
				User:     s.Redis.SSH.User,
				Password: s.Redis.SSH.Password,
			}
		}
		b, err := redisdb.Connect(o)
		if err != nil {
			return nil, err
		}
		sess.closers = append(sess.closers, b.Close)
		opts = append(opts, dispatch.WithSequence(b.Sequence()))
		handler = b
	case settings.BackendSQL:
		st, err := sqlstore.Open(s.SQL.DSN, sch)
		if err != nil {
			return nil, err
		}
		sess.closers = append(sess.closers, st.Close)
		opts = append(opts, dispatch.WithSequence(st.Sequence()))
		handler = st
	default:
		handler = memory.New()
	}

	if reg != nil {
		opts = append(opts, dispatch.WithMetrics(dispatch.NewMetrics(reg)))
	}
	if s.Audit.Path != "" {
		logger, err := audit.NewFileLogger(s.Audit.Path, audit.RotationConfig{
			MaxSize:    s.Audit.MaxSize,
			MaxBackups: s.Audit.MaxBackups,
		})
		if err != nil {
			sess.Close()
			return nil, err
		}
		sess.closers = append(sess.closers, logger.Close)
		opts = append(opts, dispatch.WithRecorder(audit.NewRecorder(logger, sch, s.Backend)))
	}

	d := dispatch.New(sch, opts...)
	if _, err := d.Restore(handler); err != nil {
		sess.Close()
		return nil, err
	}
	sess.table = api.NewTable(d, handler)
	util.WithBackend(s.Backend).Debug("Session ready")
	return sess, nil
}

// Close releases the backend and audit log in reverse order of opening.
func (s *session) Close() error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}
