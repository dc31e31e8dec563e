package metrics

import "net/http"

// nopMeter 丢弃所有指标的实现
type nopMeter struct{}

func (nopMeter) Counter(string, string, ...string) (Counter, error) {
	return nopInstrument{}, nil
}

func (nopMeter) Gauge(string, string, ...string) (Gauge, error) {
	return nopInstrument{}, nil
}

func (nopMeter) Histogram(string, string, ...string) (Histogram, error) {
	return nopInstrument{}, nil
}

func (nopMeter) Handler() http.Handler {
	return http.NotFoundHandler()
}

type nopInstrument struct{}

func (nopInstrument) Inc(...Label)              {}
func (nopInstrument) Add(float64, ...Label)     {}
func (nopInstrument) Set(float64, ...Label)     {}
func (nopInstrument) Observe(float64, ...Label) {}
