// Package identity predicts the surrogate keys a store assigns and checks the
// prediction against what the store reports.
package identity

import "fmt"

// DriftError is returned when the store assigned a different surrogate key
// than the one predicted for a row.
type DriftError struct {
	Table     string
	Predicted int64
	Reported  int64
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("identity drift on %s: predicted %d, store assigned %d", e.Table, e.Predicted, e.Reported)
}

// Sequence mirrors an identity column that starts at 1 and grows by one per
// inserted row.
type Sequence struct {
	table string
	next  int64
}

// NewSequence returns a sequence for table starting at 1.
func NewSequence(table string) *Sequence {
	return &Sequence{table: table, next: 1}
}

// Table returns the table the sequence belongs to.
func (s *Sequence) Table() string { return s.table }

// Next consumes and returns the next value.
func (s *Sequence) Next() int64 {
	v := s.next
	s.next++
	return v
}

// Peek returns the next value without consuming it.
func (s *Sequence) Peek() int64 { return s.next }

// Assigned returns how many values have been consumed.
func (s *Sequence) Assigned() int64 { return s.next - 1 }

// Reconcile returns the key to use for a row. A reported value of 0 means
// the store did not report a key and the prediction stands.
func Reconcile(table string, predicted, reported int64) (int64, error) {
	if reported == 0 || reported == predicted {
		return predicted, nil
	}
	return 0, &DriftError{Table: table, Predicted: predicted, Reported: reported}
}

// ReconcileBatch checks a batch of reported keys against the predictions.
// An empty report is accepted as is.
func ReconcileBatch(table string, predicted, reported []int64) error {
	if len(reported) == 0 {
		return nil
	}
	if len(reported) != len(predicted) {
		return fmt.Errorf("identity drift on %s: predicted %d keys, store reported %d", table, len(predicted), len(reported))
	}
	for i := range predicted {
		if _, err := Reconcile(table, predicted[i], reported[i]); err != nil {
			return err
		}
	}
	return nil
}
