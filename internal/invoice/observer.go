package invoice

// Observer is told about every payment attempt. Metrics implement it.
type Observer interface {
	PaymentRecorded(status string, amount float64)
	PaymentRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) PaymentRecorded(string, float64) {}
func (nopObserver) PaymentRejected(string)          {}
