package colorize

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultOptions_Valid(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("DefaultOptions().Validate() = %v", err)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   error
	}{
		{"step", func(o *Options) { o.GridStep = 0 }, ErrInvalidStep},
		{"extent", func(o *Options) { o.Extent = math.Inf(1) }, ErrInvalidExtent},
		{"neighbours", func(o *Options) { o.Neighbors = -3 }, ErrInvalidNeighbors},
		{"sigma", func(o *Options) { o.Sigma = -1 }, ErrInvalidSigma},
		{"temperature", func(o *Options) { o.Temperature = -0.01 }, ErrInvalidTemperature},
		{"workers", func(o *Options) { o.Workers = -2 }, ErrInvalidWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := DefaultOptions()
			tt.modify(&opt)
			if err := opt.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOptionsFromTable(t *testing.T) {
	tab, err := NewTable(4, 20, func(a, b float64) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	opt := OptionsFromTable(tab)
	if opt.GridStep != 4 || opt.Sigma != 2 {
		t.Errorf("OptionsFromTable = %+v", opt)
	}
	if OptionsFromTable(nil) != DefaultOptions() {
		t.Error("nil table should give DefaultOptions")
	}
}
