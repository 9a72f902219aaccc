package storage

import "positionfarm/internal/model"

// Journal defines a sink for farm event records.
type Journal interface {
	PutEvents(events []model.EventRecord) error
}

// Tee fans events out to several journals. The first failure wins but every
// journal still sees the batch.
type Tee []Journal

func (t Tee) PutEvents(events []model.EventRecord) error {
	var first error
	for _, j := range t {
		if err := j.PutEvents(events); err != nil && first == nil {
			first = err
		}
	}
	return first
}
