package node

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/ceres/comm"
)

type loggingService struct {
	logger  log.Logger
	service Service
}

// NewLoggingService wraps a provided existing
// service with the provided logger.
func NewLoggingService(s Service, logger log.Logger) Service {
	return &loggingService{logger, s}
}

// CreateRecord wraps this service's CreateRecord
// method with added logging capabilities.
func (s *loggingService) CreateRecord(rec Record) (*WriteReceipt, error) {

	receipt, err := s.service.CreateRecord(rec)

	logger := log.With(s.logger,
		"method", "CreateRecord",
		"key", rec.ID,
	)

	if err != nil {
		level.Info(logger).Log(
			"msg", "failed to perform operation CreateRecord correctly",
			"err", err,
		)
	} else {
		level.Debug(logger).Log()
	}

	return receipt, err
}

// UpdateRecord wraps this service's UpdateRecord
// method with added logging capabilities.
func (s *loggingService) UpdateRecord(rec Record) (*WriteReceipt, error) {

	receipt, err := s.service.UpdateRecord(rec)

	logger := log.With(s.logger,
		"method", "UpdateRecord",
		"key", rec.ID,
	)

	if err != nil {
		level.Info(logger).Log(
			"msg", "failed to perform operation UpdateRecord correctly",
			"err", err,
		)
	} else {
		level.Debug(logger).Log()
	}

	return receipt, err
}

// ReceiveReplicated wraps this service's ReceiveReplicated
// method with added logging capabilities.
func (s *loggingService) ReceiveReplicated(op *comm.Operation) (comm.Outcome, error) {

	outcome, err := s.service.ReceiveReplicated(op)

	logger := s.logger
	if op != nil {
		logger = log.With(s.logger,
			"method", "ReceiveReplicated",
			"key", op.Key,
			"origin", op.Origin,
			"outcome", string(outcome),
		)
	}

	if err != nil {
		level.Info(logger).Log(
			"msg", "failed to perform operation ReceiveReplicated correctly",
			"err", err,
		)
	} else {
		level.Debug(logger).Log()
	}

	return outcome, err
}

// Health wraps this service's Health method
// with added logging capabilities.
func (s *loggingService) Health() (*Health, error) {

	health, err := s.service.Health()

	if err != nil {
		level.Info(s.logger).Log(
			"msg", "failed to perform operation Health correctly",
			"err", err,
		)
	}

	return health, err
}

// AuditEntries wraps this service's AuditEntries method.
func (s *loggingService) AuditEntries() []AuditEntry {
	return s.service.AuditEntries()
}

// QueuedOperations wraps this service's QueuedOperations
// method.
func (s *loggingService) QueuedOperations() []*comm.Operation {
	return s.service.QueuedOperations()
}
