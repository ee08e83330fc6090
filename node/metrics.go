package node

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-pluto/ceres/comm"
)

type metricsService struct {
	service  Service
	writes   metrics.Counter
	outcomes metrics.Counter
}

// NewMetricsService wraps a provided existing service with
// counters for successful local writes and for the outcome
// of each received replicated operation.
func NewMetricsService(s Service, writes metrics.Counter, outcomes metrics.Counter) Service {
	return &metricsService{
		service:  s,
		writes:   writes,
		outcomes: outcomes,
	}
}

func (s *metricsService) CreateRecord(rec Record) (*WriteReceipt, error) {

	receipt, err := s.service.CreateRecord(rec)

	if err == nil {
		s.writes.Add(1)
	}

	return receipt, err
}

func (s *metricsService) UpdateRecord(rec Record) (*WriteReceipt, error) {

	receipt, err := s.service.UpdateRecord(rec)

	if err == nil {
		s.writes.Add(1)
	}

	return receipt, err
}

func (s *metricsService) ReceiveReplicated(op *comm.Operation) (comm.Outcome, error) {

	outcome, err := s.service.ReceiveReplicated(op)

	s.outcomes.With("outcome", string(outcome)).Add(1)

	return outcome, err
}

func (s *metricsService) Health() (*Health, error) {
	return s.service.Health()
}

func (s *metricsService) AuditEntries() []AuditEntry {
	return s.service.AuditEntries()
}

func (s *metricsService) QueuedOperations() []*comm.Operation {
	return s.service.QueuedOperations()
}
